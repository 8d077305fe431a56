package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Chain tries engines in order until one returns audio. It backs the
// server side "auto" mode; the interactive Selector never falls back.
type Chain struct {
	engines []Engine
	timeout time.Duration
	logger  *log.Logger
}

// NewChain creates a chain over engines, tried in the given order.
func NewChain(timeout time.Duration, logger *log.Logger, engines ...Engine) *Chain {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = log.Default().WithPrefix("tts")
	}
	return &Chain{engines: engines, timeout: timeout, logger: logger}
}

// Configured reports whether any engine in the chain can be used.
func (c *Chain) Configured() bool {
	for _, e := range c.engines {
		if e.Configured() {
			return true
		}
	}
	return false
}

// Speak returns audio from the first engine that succeeds.
func (c *Chain) Speak(ctx context.Context, text string, opts Options) (Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Audio{}, NewError(ErrEmptyText, "", "speak")
	}

	var errs []error
	for _, e := range c.engines {
		if !e.Configured() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Audio{}, err
		}

		data, err := c.attempt(ctx, e, text, opts)
		if err == nil {
			return Audio{Data: data, Format: "mp3", Provider: e.Provider()}, nil
		}
		c.logger.Warn("tts provider failed, trying next", "provider", e.Provider(), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", e.Provider(), err))
	}

	if len(errs) == 0 {
		return Audio{}, NewError(ErrNotConfigured, "", "speak")
	}
	return Audio{}, NewError(fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...)), "", "speak")
}

func (c *Chain) attempt(ctx context.Context, e Engine, text string, opts Options) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := e.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	return data, nil
}
