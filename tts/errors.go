package tts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for the speech system.
var (
	// Provider errors
	ErrUnknownProvider = errors.New("unknown TTS provider")
	ErrNotConfigured   = errors.New("TTS provider is not configured")
	ErrNoAudio         = errors.New("no audio data received")
	ErrAllFailed       = errors.New("all TTS providers failed")

	// Request errors
	ErrEmptyText = errors.New("text is required")

	// Settings errors
	ErrSettingsClosed = errors.New("settings have been closed")
)

// IsRecoverableError reports whether retrying the same provider later could
// succeed.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrUnknownProvider),
		errors.Is(err, ErrNotConfigured),
		errors.Is(err, ErrEmptyText):
		return false
	}
	return true
}

// ErrorSeverity represents the severity of an error.
type ErrorSeverity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning is for failures the user can work around.
	SeverityWarning
	// SeverityError is for errors that prevent normal operation.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "error"
	}
}

// Error describes a failed synthesis on one provider.
type Error struct {
	Err       error          // The underlying error
	Provider  Provider       // Provider that was active
	Action    string         // Action being performed when the error occurred
	Severity  ErrorSeverity  // Severity of the error
	Timestamp time.Time      // When the error occurred
	Context   map[string]any // Additional context
}

// NewError creates a new provider error.
func NewError(err error, provider Provider, action string) *Error {
	return &Error{
		Err:       err,
		Provider:  provider,
		Action:    action,
		Severity:  SeverityError,
		Timestamp: time.Now(),
		Context:   make(map[string]any),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "unknown TTS error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider == "" {
		return fmt.Sprintf("tts %s: %s", e.Action, msg)
	}
	return fmt.Sprintf("tts %s (%s): %s", e.Action, e.Provider, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRecoverable checks if the error is recoverable.
func (e *Error) IsRecoverable() bool {
	return IsRecoverableError(e.Err)
}

// WithSeverity sets the error severity.
func (e *Error) WithSeverity(severity ErrorSeverity) *Error {
	e.Severity = severity
	return e
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// SuggestSwitch lists the providers the user could switch to instead of the
// one that failed.
func (e *Error) SuggestSwitch() []Provider {
	out := make([]Provider, 0, len(Providers)-1)
	for _, p := range Providers {
		if p != e.Provider {
			out = append(out, p)
		}
	}
	return out
}

// UserMessage is the failure text shown to the user. It never implies that
// another provider was tried.
func (e *Error) UserMessage() string {
	alts := e.SuggestSwitch()
	labels := make([]string, len(alts))
	for i, p := range alts {
		labels[i] = p.Label()
	}
	name := "Speech"
	if e.Provider != "" {
		name = e.Provider.Label()
	}
	return fmt.Sprintf("%s is unavailable. Try switching to %s.", name, strings.Join(labels, " or "))
}
