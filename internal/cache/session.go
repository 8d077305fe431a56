package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"
)

// SessionMirror is a session-scoped copy of recently resolved images, so a
// revisit in the same session never touches the durable backends. Entries
// keep the timestamp of the backend entry they mirror.
type SessionMirror struct {
	items map[string]Entry

	sessionID string
	startTime time.Time

	mu sync.RWMutex

	hits   int64
	misses int64
}

// NewSessionMirror creates an empty mirror with a fresh session id.
func NewSessionMirror() *SessionMirror {
	return &SessionMirror{
		items:     make(map[string]Entry),
		sessionID: generateSessionID(),
		startTime: time.Now(),
	}
}

// Get returns the mirrored entry for key.
func (s *SessionMirror) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if ok {
		s.hits++
	} else {
		s.misses++
	}
	return e, ok
}

// Put mirrors e under its key.
func (s *SessionMirror) Put(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[e.Key] = e
}

// RemoveOlderThan drops entries stamped before cutoff.
func (s *SessionMirror) RemoveOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.items {
		if e.Timestamp.Before(cutoff) {
			delete(s.items, k)
			removed++
		}
	}
	return removed
}

// Delete removes key from the mirror.
func (s *SessionMirror) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
}

// Clear empties the mirror.
func (s *SessionMirror) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]Entry)
}

// Restart ends the current session and starts a new, empty one.
func (s *SessionMirror) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]Entry)
	s.sessionID = generateSessionID()
	s.startTime = time.Now()
	s.hits, s.misses = 0, 0
}

// Len returns the number of mirrored keys.
func (s *SessionMirror) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Info returns information about the current session.
func (s *SessionMirror) Info() (sessionID string, duration time.Duration, itemCount int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sessionID, time.Since(s.startTime), len(s.items)
}

func generateSessionID() string {
	data := fmt.Sprintf("session-%d-%d", time.Now().UnixNano(), os.Getpid())
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
