package cache

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when cache data is corrupted
	ErrCacheCorrupted = errors.New("cache data corrupted")

	// ErrBackendClosed is returned by a backend after Close
	ErrBackendClosed = errors.New("cache backend closed")
)

// Default limits for the word image cache.
const (
	DefaultMaxEntries      = 100
	DefaultFallbackEntries = 50
	DefaultHeadroom        = 10
	DefaultRetention       = 30 * 24 * time.Hour
)

// Entry is a cached image reference for one word.
type Entry struct {
	Key       string
	Image     string // data URI or remote URL
	Timestamp time.Time
}

// Expired reports whether the entry is older than the retention window.
func (e Entry) Expired(now time.Time, retention time.Duration) bool {
	return retention > 0 && now.Sub(e.Timestamp) > retention
}

// Stats describes the state of the word image cache.
type Stats struct {
	Count   int       `json:"count"`
	Max     int       `json:"max"`
	Oldest  time.Time `json:"oldest"` // zero when the cache is empty
	Storage string    `json:"storage"` // name of the backend that answered

	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
}

// Backend is a fixed-capacity store of cache entries. A Store of a new key
// into a full backend drops its oldest entry.
type Backend interface {
	Name() string
	Load(key string) (Entry, bool, error)
	Store(e Entry) error
	Delete(key string) error
	Clear() error

	Len() (int, error)
	// Oldest returns up to n entries ordered by ascending timestamp.
	Oldest(n int) ([]Entry, error)
	Capacity() int
}

// Config holds configuration for the word image cache.
type Config struct {
	MaxEntries      int           `mapstructure:"max_entries"`
	FallbackEntries int           `mapstructure:"fallback_entries"`
	Headroom        int           `mapstructure:"headroom"`
	Retention       time.Duration `mapstructure:"retention"`

	// Durable store
	DiskPath         string `mapstructure:"dir"`
	CompressionLevel int    `mapstructure:"compression_level"`

	// How often expired entries are purged from the durable store.
	// Zero disables the janitor.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries:       DefaultMaxEntries,
		FallbackEntries:  DefaultFallbackEntries,
		Headroom:         DefaultHeadroom,
		Retention:        DefaultRetention,
		CompressionLevel: 3,
		CleanupInterval:  time.Hour,
	}
}

// NormalizeKey maps a word to its cache key. Lookups are case-insensitive.
func NormalizeKey(word string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(word))
}

// ScopedKey maps a word to its cache key within scope, usually a user id.
// The scope keeps its case; an empty scope gives the plain word key.
func ScopedKey(scope, word string) string {
	key := NormalizeKey(word)
	if key == "" || scope == "" {
		return key
	}
	return scope + "/" + key
}
