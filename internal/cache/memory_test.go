package cache

import (
	"fmt"
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTimeIndex_Ordering(t *testing.T) {
	x := newTimeIndex()
	x.upsert("c", epoch.Add(3*time.Minute))
	x.upsert("a", epoch.Add(1*time.Minute))
	x.upsert("b", epoch.Add(2*time.Minute))

	got := x.oldest(2)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("oldest(2) = %v, want [a b]", got)
	}
	if x.len() != 3 {
		t.Errorf("oldest must not modify the index, len = %d", x.len())
	}

	// moving a key forward in time changes the order
	x.upsert("a", epoch.Add(10*time.Minute))
	if key, _, _ := x.peekOldest(); key != "b" {
		t.Errorf("peekOldest = %s, want b", key)
	}

	x.remove("b")
	if key, ok := x.popOldest(); !ok || key != "c" {
		t.Errorf("popOldest = %s, %v, want c", key, ok)
	}
	if x.len() != 1 {
		t.Errorf("len = %d, want 1", x.len())
	}
}

func TestTimeIndex_TiesBreakByInsertion(t *testing.T) {
	x := newTimeIndex()
	for i := 0; i < 5; i++ {
		x.upsert(fmt.Sprintf("k%d", i), epoch)
	}
	got := x.oldest(5)
	for i, key := range got {
		if want := fmt.Sprintf("k%d", i); key != want {
			t.Errorf("position %d = %s, want %s", i, key, want)
		}
	}
}

func TestMemoryStore_BasicOperations(t *testing.T) {
	m := NewMemoryStore(10)

	if err := m.Store(Entry{Key: "apple", Image: "data:image/png;base64,AAA", Timestamp: epoch}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	e, ok, err := m.Load("apple")
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if e.Image != "data:image/png;base64,AAA" {
		t.Errorf("Image mismatch: got %s", e.Image)
	}

	if err := m.Delete("apple"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := m.Load("apple"); ok {
		t.Error("key still present after delete")
	}
}

func TestMemoryStore_FallbackCapacity(t *testing.T) {
	m := NewMemoryStore(0)
	if m.Capacity() != DefaultFallbackEntries {
		t.Errorf("Capacity = %d, want %d", m.Capacity(), DefaultFallbackEntries)
	}
}

func TestMemoryStore_NeverExceedsCapacity(t *testing.T) {
	m := NewMemoryStore(3)
	for i := 0; i < 5; i++ {
		_ = m.Store(Entry{Key: fmt.Sprintf("w%d", i), Image: "x", Timestamp: epoch.Add(time.Duration(i) * time.Second)})
	}

	n, _ := m.Len()
	if n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}
	for _, gone := range []string{"w0", "w1"} {
		if _, ok, _ := m.Load(gone); ok {
			t.Errorf("%s should have been evicted", gone)
		}
	}

	oldest, _ := m.Oldest(1)
	if len(oldest) != 1 || oldest[0].Key != "w2" {
		t.Errorf("Oldest = %v, want w2", oldest)
	}
}

func TestMemoryStore_RemoveOlderThan(t *testing.T) {
	m := NewMemoryStore(10)
	for i := 0; i < 4; i++ {
		_ = m.Store(Entry{Key: fmt.Sprintf("w%d", i), Image: "x", Timestamp: epoch.Add(time.Duration(i) * time.Hour)})
	}

	removed := m.RemoveOlderThan(epoch.Add(2 * time.Hour))
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if n, _ := m.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
}
