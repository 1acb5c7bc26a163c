package storage

import "sync"

// ring is a fixed-capacity buffer that drops the oldest record when full.
// It bounds MemoryStore history so a broker-less deployment cannot grow
// without limit under continuous telemetry.
type ring[T any] struct {
	mu      sync.RWMutex
	items   []T
	head    int
	size    int
	dropped uint64
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) Append(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	} else {
		r.dropped++
	}
}

// Snapshot returns the retained records in insertion order, oldest first.
func (r *ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, r.size)
	start := (r.head - r.size + len(r.items)) % len(r.items)
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(start+i)%len(r.items)])
	}
	return out
}

func (r *ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Dropped reports how many records were evicted to make room.
func (r *ring[T]) Dropped() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}
