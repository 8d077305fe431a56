package cache

import (
	"container/heap"
	"time"
)

// timeIndex orders keys by timestamp so the oldest entry is found in
// O(log n). Ties are broken by insertion sequence.
type timeIndex struct {
	items indexHeap
	byKey map[string]*indexItem
	seq   uint64
}

type indexItem struct {
	key   string
	ts    time.Time
	seq   uint64
	index int
}

type indexHeap []*indexItem

func (h indexHeap) Len() int { return len(h) }

func (h indexHeap) Less(i, j int) bool {
	if h[i].ts.Equal(h[j].ts) {
		return h[i].seq < h[j].seq
	}
	return h[i].ts.Before(h[j].ts)
}

func (h indexHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *indexHeap) Push(x any) {
	item := x.(*indexItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

func newTimeIndex() *timeIndex {
	return &timeIndex{byKey: make(map[string]*indexItem)}
}

// upsert inserts key or moves it to its new timestamp.
func (x *timeIndex) upsert(key string, ts time.Time) {
	x.seq++
	if item, ok := x.byKey[key]; ok {
		item.ts = ts
		item.seq = x.seq
		heap.Fix(&x.items, item.index)
		return
	}
	item := &indexItem{key: key, ts: ts, seq: x.seq}
	heap.Push(&x.items, item)
	x.byKey[key] = item
}

func (x *timeIndex) remove(key string) {
	item, ok := x.byKey[key]
	if !ok {
		return
	}
	heap.Remove(&x.items, item.index)
	delete(x.byKey, key)
}

// popOldest removes and returns the oldest key.
func (x *timeIndex) popOldest() (string, bool) {
	if len(x.items) == 0 {
		return "", false
	}
	item := heap.Pop(&x.items).(*indexItem)
	delete(x.byKey, item.key)
	return item.key, true
}

func (x *timeIndex) peekOldest() (string, time.Time, bool) {
	if len(x.items) == 0 {
		return "", time.Time{}, false
	}
	return x.items[0].key, x.items[0].ts, true
}

// oldest returns up to n keys in ascending timestamp order without
// modifying the index.
func (x *timeIndex) oldest(n int) []string {
	if n <= 0 || len(x.items) == 0 {
		return nil
	}
	scratch := make(indexHeap, len(x.items))
	for i, item := range x.items {
		cp := *item
		cp.index = i
		scratch[i] = &cp
	}
	keys := make([]string, 0, min(n, len(scratch)))
	for len(keys) < n && scratch.Len() > 0 {
		keys = append(keys, heap.Pop(&scratch).(*indexItem).key)
	}
	return keys
}

func (x *timeIndex) len() int { return len(x.items) }

func (x *timeIndex) reset() {
	x.items = nil
	x.byKey = make(map[string]*indexItem)
}
