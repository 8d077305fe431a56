package cache

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// MediaCache is the word image cache. Reads go to the session mirror and
// then to each backend in order until one has the key. Entries are scoped
// by owner through the For variants.
type MediaCache struct {
	backends []Backend
	session  *SessionMirror
	config   Config
	logger   *log.Logger
	now      func() time.Time

	// serializes the count, evict and store sequence of Put
	writeMu sync.Mutex

	mu    sync.RWMutex
	stats struct {
		Hits      int64
		Misses    int64
		Evictions int64
		Expired   int64
		Dropped   int64
	}

	cleanupStop   chan struct{}
	cleanupTicker *time.Ticker
	cleanupWg     sync.WaitGroup
	closeOnce     sync.Once
}

// Option configures a MediaCache.
type Option func(*MediaCache)

// WithLogger sets the logger used for degraded backend reports.
func WithLogger(l *log.Logger) Option {
	return func(c *MediaCache) { c.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *MediaCache) { c.now = now }
}

// WithSession shares a session mirror with other components.
func WithSession(s *SessionMirror) Option {
	return func(c *MediaCache) { c.session = s }
}

// New builds the default backend chain: a disk store when DiskPath is set,
// followed by the in-memory fallback. A disk store that cannot be opened is
// skipped.
func New(config Config, opts ...Option) *MediaCache {
	var backends []Backend
	c := newMediaCache(config, opts...)

	if config.DiskPath != "" {
		disk, err := NewDiskStore(config.DiskPath, config.MaxEntries, config.CompressionLevel)
		if err != nil {
			c.logger.Warn("disk cache unavailable, using memory only", "path", config.DiskPath, "err", err)
		} else {
			backends = append(backends, disk)
		}
	}
	backends = append(backends, NewMemoryStore(config.FallbackEntries))
	c.backends = backends

	if config.CleanupInterval > 0 {
		c.startCleanupRoutine()
	}
	return c
}

// NewWithBackends builds a cache over an explicit backend chain.
func NewWithBackends(config Config, backends []Backend, opts ...Option) *MediaCache {
	c := newMediaCache(config, opts...)
	c.backends = backends
	return c
}

func newMediaCache(config Config, opts ...Option) *MediaCache {
	def := DefaultConfig()
	if config.MaxEntries <= 0 {
		config.MaxEntries = def.MaxEntries
	}
	if config.FallbackEntries <= 0 {
		config.FallbackEntries = def.FallbackEntries
	}
	if config.Headroom < 0 {
		config.Headroom = 0
	}
	if config.Retention == 0 {
		config.Retention = def.Retention
	}

	c := &MediaCache{
		config:      config,
		now:         time.Now,
		cleanupStop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default().WithPrefix("cache")
	}
	if c.session == nil {
		c.session = NewSessionMirror()
	}
	return c
}

// Session returns the session mirror in front of the backends.
func (c *MediaCache) Session() *SessionMirror { return c.session }

// Get returns the cached image for word. Expired entries are removed and
// reported as misses.
func (c *MediaCache) Get(word string) (string, bool) {
	return c.GetFor("", word)
}

// GetFor is Get within scope.
func (c *MediaCache) GetFor(scope, word string) (string, bool) {
	key := ScopedKey(scope, word)
	if key == "" {
		return "", false
	}
	now := c.now()

	if e, ok := c.session.Get(key); ok {
		if e.Expired(now, c.config.Retention) {
			c.expire(key)
			return "", false
		}
		c.count(func() { c.stats.Hits++ })
		return e.Image, true
	}

	for _, b := range c.backends {
		e, ok, err := b.Load(key)
		if err != nil {
			c.logger.Debug("cache backend read failed", "backend", b.Name(), "key", key, "err", err)
			continue
		}
		if !ok {
			continue
		}
		if e.Expired(now, c.config.Retention) {
			c.expire(key)
			return "", false
		}
		e.Key = key
		c.session.Put(e)
		c.count(func() { c.stats.Hits++ })
		return e.Image, true
	}

	c.count(func() { c.stats.Misses++ })
	return "", false
}

// expire removes key from the mirror and every backend and counts the miss.
func (c *MediaCache) expire(key string) {
	c.remove(key)
	c.count(func() { c.stats.Expired++; c.stats.Misses++ })
}

// Put caches image for word. The write goes to the first backend that
// accepts it; when none does the write is dropped.
func (c *MediaCache) Put(word, image string) {
	c.PutFor("", word, image)
}

// PutFor is Put within scope.
func (c *MediaCache) PutFor(scope, word, image string) {
	key := ScopedKey(scope, word)
	if key == "" || image == "" {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	e := Entry{Key: key, Image: image, Timestamp: c.now()}
	for _, b := range c.backends {
		if err := c.storeInto(b, e); err != nil {
			c.logger.Debug("cache backend write failed", "backend", b.Name(), "key", key, "err", err)
			continue
		}
		c.session.Put(e)
		return
	}

	c.count(func() { c.stats.Dropped++ })
	c.logger.Debug("cache write dropped", "key", key)
}

// storeInto makes room in b if key is new and b is full, then stores e.
func (c *MediaCache) storeInto(b Backend, e Entry) error {
	if _, exists, err := b.Load(e.Key); err != nil {
		return err
	} else if !exists {
		c.evictFor(b)
	}
	return b.Store(e)
}

// evictFor removes the oldest entries from b once it is at capacity, down
// to capacity minus headroom. Failures are logged and never block a write.
func (c *MediaCache) evictFor(b Backend) {
	n, err := b.Len()
	if err != nil {
		return
	}
	max := b.Capacity()
	if n < max {
		return
	}

	target := max - c.config.Headroom
	if target >= max {
		target = max - 1
	}
	if target < 0 {
		target = 0
	}

	victims, err := b.Oldest(n - target)
	if err != nil {
		c.logger.Debug("cache eviction skipped", "backend", b.Name(), "err", err)
		return
	}
	for _, v := range victims {
		if err := b.Delete(v.Key); err != nil {
			c.logger.Debug("cache eviction failed", "backend", b.Name(), "key", v.Key, "err", err)
			continue
		}
		c.session.Delete(v.Key)
		c.count(func() { c.stats.Evictions++ })
	}
}

// Delete removes word from the mirror and every backend.
func (c *MediaCache) Delete(word string) {
	c.DeleteFor("", word)
}

// DeleteFor is Delete within scope.
func (c *MediaCache) DeleteFor(scope, word string) {
	if key := ScopedKey(scope, word); key != "" {
		c.remove(key)
	}
}

func (c *MediaCache) remove(key string) {
	c.session.Delete(key)
	for _, b := range c.backends {
		if err := b.Delete(key); err != nil {
			c.logger.Debug("cache delete failed", "backend", b.Name(), "key", key, "err", err)
		}
	}
}

// Clear removes every cached image from all backends and starts a new
// session.
func (c *MediaCache) Clear() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.session.Restart()

	var errs []error
	for _, b := range c.backends {
		if err := b.Clear(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats reports the first backend that answers.
func (c *MediaCache) Stats() Stats {
	c.mu.RLock()
	stats := Stats{
		Hits:      c.stats.Hits,
		Misses:    c.stats.Misses,
		Evictions: c.stats.Evictions,
		Expired:   c.stats.Expired,
	}
	c.mu.RUnlock()

	for _, b := range c.backends {
		n, err := b.Len()
		if err != nil {
			continue
		}
		stats.Count = n
		stats.Max = b.Capacity()
		stats.Storage = b.Name()
		if oldest, err := b.Oldest(1); err == nil && len(oldest) > 0 {
			stats.Oldest = oldest[0].Timestamp
		}
		return stats
	}

	stats.Max = c.config.MaxEntries
	stats.Storage = "unknown"
	return stats
}

// PurgeExpired removes expired entries from the mirror and from every
// backend that supports it. The count covers the backends only.
func (c *MediaCache) PurgeExpired() int {
	cutoff := c.now().Add(-c.config.Retention)
	c.session.RemoveOlderThan(cutoff)

	removed := 0
	for _, b := range c.backends {
		if p, ok := b.(interface{ RemoveOlderThan(time.Time) int }); ok {
			removed += p.RemoveOlderThan(cutoff)
		}
	}
	return removed
}

// Close stops the janitor and closes the backends.
func (c *MediaCache) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		if c.cleanupTicker != nil {
			close(c.cleanupStop)
			c.cleanupWg.Wait()
			c.cleanupTicker.Stop()
		}
		c.session.Clear()
		for _, b := range c.backends {
			if closer, ok := b.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					errs = append(errs, err)
				}
			}
		}
	})
	return errors.Join(errs...)
}

func (c *MediaCache) startCleanupRoutine() {
	c.cleanupTicker = time.NewTicker(c.config.CleanupInterval)
	c.cleanupWg.Add(1)

	go func() {
		defer c.cleanupWg.Done()

		for {
			select {
			case <-c.cleanupTicker.C:
				if removed := c.PurgeExpired(); removed > 0 {
					c.logger.Info("purged expired images", "count", removed)
				}
			case <-c.cleanupStop:
				return
			}
		}
	}()
}

func (c *MediaCache) count(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}
