// Package dedupe tracks client idempotency keys for run submissions.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10000

// Deduper maps idempotency keys to the run they created.
type Deduper interface {
	// Claim atomically records key for runID unless the key is already
	// known. When it is, the run that claimed it first is returned with
	// seen set to true.
	Claim(ctx context.Context, key, runID string) (existing string, seen bool)

	// Release forgets a key so that it can be claimed again. Used when the
	// submission that claimed it could not be enqueued.
	Release(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key   string
	runID string
}

// inMemoryDeduper keeps keys in insertion order; the oldest key is evicted
// once maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is the newest key
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, runID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(entry).runID, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushFront(entry{key: key, runID: runID})
	d.size.Add(1)
	return runID, false
}

func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.seen[key]
	if !ok {
		return
	}
	d.order.Remove(el)
	delete(d.seen, key)
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(entry).key)
	d.size.Add(-1)
}

// Size returns the current number of tracked keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
