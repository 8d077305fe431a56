package cache

import (
	"sync"
	"time"
)

// MemoryStore is the in-memory backend: a fixed-capacity map plus a
// timestamp-ordered index. It is the fallback when the disk store fails.
type MemoryStore struct {
	capacity int

	items map[string]Entry
	index *timeIndex

	mu sync.RWMutex
}

// NewMemoryStore creates a memory store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultFallbackEntries
	}
	return &MemoryStore{
		capacity: capacity,
		items:    make(map[string]Entry, capacity),
		index:    newTimeIndex(),
	}
}

// Name implements Backend.
func (m *MemoryStore) Name() string { return "memory" }

// Capacity implements Backend.
func (m *MemoryStore) Capacity() int { return m.capacity }

// Load implements Backend.
func (m *MemoryStore) Load(key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.items[key]
	return e, ok, nil
}

// Store implements Backend. A store beyond capacity drops the oldest entry
// so the map never grows past its fixed size.
func (m *MemoryStore) Store(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[e.Key]; !ok {
		for len(m.items) >= m.capacity {
			key, ok := m.index.popOldest()
			if !ok {
				break
			}
			delete(m.items, key)
		}
	}

	m.items[e.Key] = e
	m.index.upsert(e.Key, e.Timestamp)
	return nil
}

// Delete implements Backend.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	m.index.remove(key)
	return nil
}

// Clear implements Backend.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]Entry, m.capacity)
	m.index.reset()
	return nil
}

// Len implements Backend.
func (m *MemoryStore) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items), nil
}

// RemoveOlderThan removes entries stored before cutoff.
func (m *MemoryStore) RemoveOlderThan(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for {
		key, ts, ok := m.index.peekOldest()
		if !ok || !ts.Before(cutoff) {
			break
		}
		m.index.popOldest()
		delete(m.items, key)
		removed++
	}
	return removed
}

// Oldest implements Backend.
func (m *MemoryStore) Oldest(n int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := m.index.oldest(n)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, m.items[k])
	}
	return entries, nil
}
