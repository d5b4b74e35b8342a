package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/types"
	"github.com/okian/eventscore/pkg/logger"
	"github.com/okian/eventscore/pkg/metrics"
)

// MemoryStore keeps scored events in a map and serves reads from a sorted
// snapshot that is rebuilt lazily after writes.
type MemoryStore struct {
	mu       sync.RWMutex
	byName   map[string]model.ScoredEvent
	snapshot []model.ScoredEvent // nil when stale
	closed   bool

	log logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := newSettings(opts)
	return &MemoryStore{
		byName: make(map[string]model.ScoredEvent),
		log:    s.log,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, name string) (model.ScoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.byName[key(name)]
	if !ok {
		return model.ScoredEvent{}, fmt.Errorf("get %q: %w", name, ErrNotFound)
	}
	return ev, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, ev model.ScoredEvent) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("upsert", msSince(start)) }()

	k := key(ev.CompanyName)
	if k == "" {
		return false, ErrInvalidEvent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	if prior, ok := s.byName[k]; ok && keepPrior(prior, ev) {
		s.log.Debug(ctx, "kept prior non-zero result",
			logger.String("event", k),
			logger.Int("prior_total", prior.TotalScore))
		return false, nil
	}
	s.byName[k] = ev
	s.snapshot = nil
	metrics.UpdateStoredEvents(len(s.byName))
	return true, nil
}

// TopN implements Store.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("top %d: %w", n, ErrInvalidLimit)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("top_n", msSince(start)) }()

	snap := s.sorted()
	n = min(n, len(snap))
	out := make([]types.Entry, n)
	for i := range n {
		out[i] = entry(i+1, snap[i])
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName), nil
}

// Close implements Store. Further writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) sorted() []model.ScoredEvent {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil {
		return s.snapshot
	}
	snap = make([]model.ScoredEvent, 0, len(s.byName))
	for _, ev := range s.byName {
		snap = append(snap, ev)
	}
	sort.Slice(snap, func(i, j int) bool {
		return before(snap[i].TotalScore, key(snap[i].CompanyName), snap[j].TotalScore, key(snap[j].CompanyName))
	})
	s.snapshot = snap
	return snap
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
