// Package cache provides the word image cache used by the resolver.
// It layers a session-scoped mirror over an ordered list of backends: a
// compressed disk store first and an in-memory store as fallback. Entries
// expire after a retention window and the oldest are evicted on overflow.
//
// The package also holds the byte-bounded LRU used for synthesized audio.
package cache
