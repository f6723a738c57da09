// Package dedupe tracks employee identifiers already seen by a load or a
// scoring run.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so it can be retried, e.g. after queue backpressure.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper is a map-backed Deduper. When maxSize > 0 the oldest
// recorded IDs are evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> position in order
	order   []string       // insertion order, "" marks a removed slot
	start   int            // first live slot in order
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[id] = len(d.order)
	d.order = append(d.order, id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pos, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	d.order[pos] = ""
}

// evictOldest drops the oldest live entry. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	for d.start < len(d.order) {
		id := d.order[d.start]
		d.order[d.start] = ""
		d.start++
		if id != "" {
			delete(d.seen, id)
			break
		}
	}
	// compact once the dead prefix dominates
	if d.start > len(d.order)/2 {
		live := make([]string, 0, len(d.seen))
		for _, id := range d.order[d.start:] {
			if id == "" {
				continue
			}
			d.seen[id] = len(live)
			live = append(live, id)
		}
		d.order = live
		d.start = 0
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
