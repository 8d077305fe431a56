package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spelldeck/spelldeck/internal/cache"
)

// Selector speaks text with the user's chosen provider. A failure is
// reported, never retried on another provider; switching is the user's call.
type Selector struct {
	store   ProviderStore
	engines map[Provider]Engine
	cache   *cache.AudioCache
	timeout time.Duration
	logger  *log.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithAudioCache shares an audio cache with other components.
func WithAudioCache(c *cache.AudioCache) SelectorOption {
	return func(s *Selector) { s.cache = c }
}

// WithTimeout bounds each remote synthesis.
func WithTimeout(d time.Duration) SelectorOption {
	return func(s *Selector) { s.timeout = d }
}

// WithLogger sets the selector's logger.
func WithLogger(l *log.Logger) SelectorOption {
	return func(s *Selector) { s.logger = l }
}

// NewSelector creates a selector over the given engines.
func NewSelector(store ProviderStore, engines []Engine, opts ...SelectorOption) *Selector {
	s := &Selector{
		store:   store,
		engines: make(map[Provider]Engine, len(engines)),
		timeout: DefaultConfig().Timeout,
	}
	for _, e := range engines {
		s.engines[e.Provider()] = e
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewAudioCache(cache.DefaultAudioCapacity)
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("tts")
	}
	return s
}

// Current returns the default provider.
func (s *Selector) Current() Provider {
	return s.CurrentFor("")
}

// CurrentFor returns the provider user has selected.
func (s *Selector) CurrentFor(user string) Provider {
	return s.store.ProviderFor(user)
}

// Available reports whether p can be selected.
func (s *Selector) Available(p Provider) bool {
	if p == Browser {
		return true
	}
	e, ok := s.engines[p]
	return ok && e.Configured()
}

// Set makes p the default provider and returns the confirmation to show.
func (s *Selector) Set(p Provider) (string, error) {
	return s.SetFor("", p)
}

// SetFor makes p user's provider and returns the confirmation to show.
func (s *Selector) SetFor(user string, p Provider) (string, error) {
	p, err := ParseProvider(string(p))
	if err != nil {
		return "", err
	}
	if !s.Available(p) {
		return UnavailableMessage(p), NewError(ErrNotConfigured, p, "select")
	}
	if p == s.CurrentFor(user) {
		return UnchangedMessage(p), nil
	}
	if err := s.store.SetProviderFor(user, p); err != nil {
		return "", NewError(err, p, "select").WithSeverity(SeverityCritical)
	}
	s.logger.Info("tts provider selected", "provider", p, "user", user)
	return SwitchedMessage(p), nil
}

// Speak synthesizes text with the default provider.
func (s *Selector) Speak(ctx context.Context, text string, opts Options) (Audio, error) {
	return s.SpeakFor(ctx, "", text, opts)
}

// SpeakFor synthesizes text with user's provider. Cached audio from that
// provider is served first; a browser selection returns no data.
func (s *Selector) SpeakFor(ctx context.Context, user, text string, opts Options) (Audio, error) {
	p := s.CurrentFor(user)
	text = strings.TrimSpace(text)
	if text == "" {
		return Audio{}, NewError(ErrEmptyText, p, "speak").WithSeverity(SeverityWarning)
	}
	if p == Browser {
		return Audio{Provider: Browser, Rate: BrowserRate}, nil
	}

	key := cache.AudioKey(string(p), text, opts.Voice)
	if data, ok := s.cache.Get(key); ok {
		return Audio{Data: data, Format: "mp3", Provider: p, Cached: true}, nil
	}

	e, ok := s.engines[p]
	if !ok || !e.Configured() {
		return Audio{}, NewError(ErrNotConfigured, p, "speak")
	}

	data, err := s.synthesize(ctx, e, text, opts)
	if err != nil {
		s.logger.Warn("speech synthesis failed", "provider", p, "text", preview(text), "err", err)
		return Audio{}, NewError(err, p, "speak").
			WithSeverity(SeverityWarning).
			WithContext("text", preview(text))
	}

	if err := s.cache.Put(key, data); err != nil {
		s.logger.Debug("audio not cached", "key", key, "err", err)
	}
	return Audio{Data: data, Format: "mp3", Provider: p}, nil
}

func (s *Selector) synthesize(ctx context.Context, e Engine, text string, opts Options) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := e.Synthesize(ctx, text, opts)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s: %w", s.timeout, err)
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	return data, nil
}

// Preload synthesizes words into the audio cache with the default provider.
func (s *Selector) Preload(ctx context.Context, words []string, opts Options) int {
	return s.PreloadFor(ctx, "", words, opts)
}

// PreloadFor synthesizes words into the audio cache with user's provider.
// Failures are skipped. It returns how many words are cached.
func (s *Selector) PreloadFor(ctx context.Context, user string, words []string, opts Options) int {
	if s.CurrentFor(user) == Browser {
		return 0
	}

	loaded := 0
	for _, w := range words {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.SpeakFor(ctx, user, w, opts); err != nil {
			s.logger.Debug("preload failed", "word", w, "err", err)
			continue
		}
		loaded++
	}
	return loaded
}

// ClearCache drops all synthesized audio.
func (s *Selector) ClearCache() {
	s.cache.Clear()
}

// SelectorStats describes the selector state.
type SelectorStats struct {
	CacheSize  int      `json:"cacheSize"`
	CacheBytes int64    `json:"cacheBytes"`
	Provider   Provider `json:"provider"`
}

// Stats returns the audio cache size and the default provider.
func (s *Selector) Stats() SelectorStats {
	return s.StatsFor("")
}

// StatsFor returns the audio cache size and user's provider.
func (s *Selector) StatsFor(user string) SelectorStats {
	cs := s.cache.Stats()
	return SelectorStats{
		CacheSize:  cs.Entries,
		CacheBytes: cs.Size,
		Provider:   s.CurrentFor(user),
	}
}

func preview(text string) string {
	const n = 30
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
