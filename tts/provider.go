package tts

import (
	"fmt"
	"strings"
)

// Provider names a speech backend.
type Provider string

const (
	Google  Provider = "google"
	MiniMax Provider = "minimax"
	Browser Provider = "browser"
)

// DefaultProvider is used when nothing has been persisted.
const DefaultProvider = Google

// Providers lists every selectable provider in display order.
var Providers = []Provider{Google, MiniMax, Browser}

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Label is the human readable name of the provider.
func (p Provider) Label() string {
	switch p {
	case Google:
		return "Google Cloud (WaveNet)"
	case MiniMax:
		return "MiniMax AI"
	case Browser:
		return "Browser voice"
	default:
		return string(p)
	}
}

// Remote reports whether the provider synthesizes audio server side.
func (p Provider) Remote() bool {
	return p == Google || p == MiniMax
}

func (p Provider) String() string { return string(p) }
