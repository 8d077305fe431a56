package cache

import (
	"container/list"
	"sync"
)

// DefaultAudioCapacity is the default byte budget of the audio cache.
const DefaultAudioCapacity = 32 << 20

// AudioCache holds synthesized speech in memory with LRU eviction under a
// byte budget.
type AudioCache struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu sync.Mutex

	hits   int64
	misses int64
}

type audioEntry struct {
	key   string
	value []byte
}

// AudioStats describes the audio cache.
type AudioStats struct {
	Entries  int
	Size     int64
	Capacity int64
	Hits     int64
	Misses   int64
}

// AudioKey is the cache key for text spoken by provider with voice.
func AudioKey(provider, text, voice string) string {
	if voice == "" {
		voice = "default"
	}
	return provider + ":" + text + "_" + voice
}

// NewAudioCache creates an audio cache with the given capacity in bytes.
func NewAudioCache(capacity int64) *AudioCache {
	if capacity <= 0 {
		capacity = DefaultAudioCapacity
	}
	return &AudioCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// Get returns the audio stored under key.
func (c *AudioCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	c.hits++
	return elem.Value.(*audioEntry).value, true
}

// Put stores audio under key, evicting least recently used entries to stay
// within capacity.
func (c *AudioCache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueSize := int64(len(value))
	if valueSize > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*audioEntry)
		c.size += valueSize - int64(len(entry.value))
		entry.value = value
		c.eviction.MoveToFront(elem)
	} else {
		c.items[key] = c.eviction.PushFront(&audioEntry{key: key, value: value})
		c.size += valueSize
	}

	for c.size > c.capacity && c.eviction.Len() > 1 {
		c.removeElement(c.eviction.Back())
	}
	return nil
}

// Clear removes all entries.
func (c *AudioCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Len returns the number of cached clips.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Stats returns cache statistics.
func (c *AudioCache) Stats() AudioStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return AudioStats{
		Entries:  len(c.items),
		Size:     c.size,
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

func (c *AudioCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*audioEntry)
	c.eviction.Remove(elem)
	delete(c.items, entry.key)
	c.size -= int64(len(entry.value))
}
