// Package service wires the result store, run queue, idempotency tracker and
// scheduler into the operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	eventqueue "github.com/okian/eventscore/internal/adapters/mq/queue"
	"github.com/okian/eventscore/internal/adapters/mq/worker"
	repository "github.com/okian/eventscore/internal/adapters/repository"
	"github.com/okian/eventscore/internal/domain/dedupe"
	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/report"
	"github.com/okian/eventscore/internal/domain/scoring"
	"github.com/okian/eventscore/internal/domain/types"
	"github.com/okian/eventscore/pkg/logger"
	"github.com/okian/eventscore/pkg/metrics"
)

// SubmitRequest is one batch of events to score.
type SubmitRequest struct {
	// IdempotencyKey makes retried submissions return the original run.
	IdempotencyKey string
	Events         []model.EventRecord
	Contacts       []model.ContactRecord
	// Criteria falls back to the service default when nil.
	Criteria *model.ScoringCriteria
}

// SubmitResult identifies the run a submission maps to.
type SubmitResult struct {
	RunID     string `json:"run_id"`
	Duplicate bool   `json:"duplicate"`
	Events    int    `json:"events"`
}

// Service implements the API dependencies for the scoring engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	runQueue eventqueue.Queue
	pool     *worker.Pool
	task     worker.Task

	// Configuration
	runWorkers int
	queueSize  int
	dedupeSize int
	maxEvents  int
	retention  int
	criteria   model.ScoringCriteria
	poolOpts   []worker.Option
	reportOpts []report.Option

	// Runs, oldest first
	runs     map[string]*tracker
	runOrder []string

	// State
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		runWorkers: 2,
		queueSize:  64,
		dedupeSize: 10_000,
		maxEvents:  5_000,
		retention:  1_000,
		criteria:   model.AllCriteria(),
		runs:       make(map[string]*tracker),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes components and launches the run workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting scoring service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.task == nil {
		s.task = worker.ScorerTask(scoring.NewScorer())
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.runQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	poolOpts := append([]worker.Option{
		worker.WithPriorLookup(s.store),
		worker.WithReportOptions(s.reportOpts...),
	}, s.poolOpts...)
	s.pool = worker.NewPool(s.task, poolOpts...)

	// Runs outlive the request that started the service.
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	for i := 0; i < s.runWorkers; i++ {
		s.wg.Add(1)
		go s.work(workerCtx)
	}

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("runWorkers", s.runWorkers),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop stops accepting runs and waits for running ones to finish. If ctx
// expires first, running runs are interrupted between batches.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping scoring service...")
	_ = s.runQueue.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn(ctx, "stop deadline reached, interrupting runs")
		s.cancel()
		<-done
	}
	s.cancel()

	// Jobs nobody dequeued.
	s.mu.RLock()
	for _, t := range s.runs {
		t.abandon()
	}
	s.mu.RUnlock()

	err := s.store.Close()
	s.logger.Info(ctx, "scoring service stopped")
	return err
}

// Submit validates a batch, records its idempotency key and queues it.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return SubmitResult{}, ErrNotStarted
	}

	if len(req.Events) == 0 {
		return SubmitResult{}, ErrEmptyRun
	}
	if len(req.Events) > s.maxEvents {
		return SubmitResult{}, fmt.Errorf("%w: %d > %d", ErrTooManyEvents, len(req.Events), s.maxEvents)
	}
	events, err := assignIDs(req.Events)
	if err != nil {
		return SubmitResult{}, err
	}

	runID := uuid.NewString()
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		if existing, seen := s.deduper.Claim(ctx, key, runID); seen {
			metrics.RecordRunDuplicate()
			s.logger.Debug(ctx, "duplicate submission",
				logger.String("key", key),
				logger.String("runID", existing),
			)
			return SubmitResult{RunID: existing, Duplicate: true, Events: len(events)}, nil
		}
	}

	criteria := s.criteria
	if req.Criteria != nil {
		criteria = *req.Criteria
	}

	t := newTracker(runID, events)
	s.track(t)

	job := eventqueue.Job{RunID: runID, Events: events, Contacts: req.Contacts, Criteria: criteria}
	if !s.runQueue.Enqueue(ctx, job) {
		s.untrack(runID)
		if key != "" {
			s.deduper.Release(ctx, key)
		}
		if s.runQueue.IsClosed() {
			return SubmitResult{}, eventqueue.ErrQueueClosed
		}
		return SubmitResult{}, eventqueue.ErrQueueFull
	}

	s.logger.Info(ctx, "run queued",
		logger.String("runID", runID),
		logger.Int("events", len(events)),
		logger.Int("contacts", len(req.Contacts)),
	)
	return SubmitResult{RunID: runID, Events: len(events)}, nil
}

// Run returns the progress of a run.
func (s *Service) Run(_ context.Context, id string) (RunView, error) {
	t, ok := s.lookup(id)
	if !ok {
		return RunView{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return t.view(), nil
}

// Cancel interrupts a queued or running run.
func (s *Service) Cancel(ctx context.Context, id string) error {
	t, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err := t.requestCancel(); err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}
	s.logger.Info(ctx, "run cancellation requested", logger.String("runID", id))
	return nil
}

// TopN returns the top N stored results.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.TopN(ctx, n)
}

// Lookup returns the stored result for an event name.
func (s *Service) Lookup(ctx context.Context, name string) (model.ScoredEvent, error) {
	if err := s.ready(); err != nil {
		return model.ScoredEvent{}, err
	}
	return s.store.Get(ctx, name)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":    s.started,
		"runWorkers": s.runWorkers,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}
	if s.runQueue == nil {
		return stats
	}

	byStatus := map[types.RunStatus]int{}
	for _, t := range s.runs {
		byStatus[t.currentStatus()]++
	}
	stats["runs"] = byStatus
	stats["queueLength"] = s.runQueue.Len(ctx)
	stats["idempotencyKeys"] = s.deduper.Size()
	if n, err := s.store.Count(ctx); err == nil {
		stats["storedEvents"] = n
	}
	return stats
}

// work drains the run queue until it is closed.
func (s *Service) work(ctx context.Context) {
	defer s.wg.Done()
	for job := range s.runQueue.Dequeue(ctx) {
		s.execute(ctx, job)
	}
}

func (s *Service) execute(ctx context.Context, job eventqueue.Job) { //nolint:gocritic // hugeParam: Job arrives by value from the queue
	t, ok := s.lookup(job.RunID)
	if !ok {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !t.begin(cancel) {
		s.logger.Debug(ctx, "skipping cancelled run", logger.String("runID", job.RunID))
		return
	}

	metrics.RecordRunStarted()
	s.logger.Info(ctx, "run started", logger.String("runID", job.RunID), logger.Int("events", len(job.Events)))

	res, err := s.pool.Run(runCtx, job.Events, job.Contacts, job.Criteria, t)

	// Persist whatever completed, even for an interrupted run.
	storeCtx := context.WithoutCancel(ctx)
	for _, ev := range res.Scored {
		if _, uerr := s.store.Upsert(storeCtx, ev); uerr != nil {
			metrics.RecordErrorByComponent("service", "store_upsert")
			s.logger.Error(ctx, "failed to store result",
				logger.String("runID", job.RunID),
				logger.String("event", ev.CompanyName),
				logger.Error(uerr),
			)
		}
	}

	status := types.RunCompleted
	if err != nil {
		status = types.RunCancelled
	}
	t.finish(status, err)
	metrics.RecordRunCompleted(string(status))
	s.logger.Info(ctx, "run finished",
		logger.String("runID", job.RunID),
		logger.String("status", string(status)),
		logger.Int("scored", len(res.Scored)),
		logger.Int("failed", len(res.Failures)),
		logger.Int("rateLimitHits", res.RateLimitHits),
	)
}

// ready refuses store reads outside Start..Stop; Stop closes the store.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) lookup(id string) (*tracker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.runs[id]
	return t, ok
}

// track registers a run and forgets the oldest finished ones beyond retention.
func (s *Service) track(t *tracker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[t.id] = t
	s.runOrder = append(s.runOrder, t.id)

	for i := 0; len(s.runs) > s.retention && i < len(s.runOrder); {
		id := s.runOrder[i]
		if old := s.runs[id]; old != nil && old.isDone() {
			delete(s.runs, id)
			s.runOrder = append(s.runOrder[:i], s.runOrder[i+1:]...)
			continue
		}
		i++
	}
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	for i, rid := range s.runOrder {
		if rid == id {
			s.runOrder = append(s.runOrder[:i], s.runOrder[i+1:]...)
			break
		}
	}
}

// assignIDs copies events, giving every event without an ID a fresh one.
func assignIDs(in []model.EventRecord) ([]model.EventRecord, error) {
	out := make([]model.EventRecord, len(in))
	seen := make(map[string]bool, len(in))
	for i, ev := range in {
		ev.ID = strings.TrimSpace(ev.ID)
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if seen[ev.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEventID, ev.ID)
		}
		seen[ev.ID] = true
		out[i] = ev
	}
	return out, nil
}

// IsClientError reports whether err stems from a bad submission.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyRun) || errors.Is(err, ErrTooManyEvents) || errors.Is(err, ErrDuplicateEventID)
}
