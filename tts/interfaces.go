package tts

import (
	"context"
	"encoding/base64"
)

// BrowserRate is the speaking rate clients use for native speech synthesis.
const BrowserRate = 0.9

// Engine synthesizes speech on one remote provider.
type Engine interface {
	// Provider identifies the engine.
	Provider() Provider

	// Configured reports whether the engine has the credentials it needs.
	Configured() bool

	// Synthesize converts text to encoded audio.
	Synthesize(ctx context.Context, text string, opts Options) ([]byte, error)
}

// ProviderStore persists the selected provider per user. The empty user
// stands for the deployment default.
type ProviderStore interface {
	ProviderFor(user string) Provider
	SetProviderFor(user string, p Provider) error
}

// Options tune a single synthesis request. Zero values use the provider's
// defaults.
type Options struct {
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// Audio is the result of a synthesis request. Browser results carry no data;
// the client speaks the text itself at Rate.
type Audio struct {
	Data     []byte
	Format   string
	Provider Provider
	Rate     float64
	Cached   bool
}

// Base64 returns the audio data base64 encoded.
func (a Audio) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// Native reports whether the client has to synthesize the audio itself.
func (a Audio) Native() bool {
	return a.Provider == Browser && len(a.Data) == 0
}
