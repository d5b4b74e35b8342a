package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/eventscore/internal/adapters/mq/worker"
	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/report"
	"github.com/okian/eventscore/internal/domain/types"
)

// EventProgress is the latest known state of one event of a run.
type EventProgress struct {
	EventID string       `json:"event_id"`
	Name    string       `json:"name"`
	State   worker.State `json:"state"`
	Reason  string       `json:"reason,omitempty"`
}

// Counts tallies events of a run by state.
type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Analyzing int `json:"analyzing"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// RunView is a point-in-time copy of a run's progress.
type RunView struct {
	ID            string                  `json:"id"`
	Status        types.RunStatus         `json:"status"`
	SubmittedAt   time.Time               `json:"submitted_at"`
	StartedAt     *time.Time              `json:"started_at,omitempty"`
	FinishedAt    *time.Time              `json:"finished_at,omitempty"`
	Counts        Counts                  `json:"counts"`
	Events        []EventProgress         `json:"events"`
	RateLimit     *worker.RateLimitSignal `json:"rate_limit,omitempty"`
	RateLimitHits int                     `json:"rate_limit_hits"`
	Report        *report.Report          `json:"report,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

// tracker follows one run. It is the run's worker.Sink.
type tracker struct {
	mu sync.RWMutex

	id        string
	status    types.RunStatus
	submitted time.Time
	started   time.Time
	finished  time.Time

	order  []string
	events map[string]*EventProgress

	rateLimit     *worker.RateLimitSignal
	rateLimitHits int
	report        *report.Report
	err           string

	cancel context.CancelFunc
}

func newTracker(id string, events []model.EventRecord) *tracker {
	t := &tracker{
		id:        id,
		status:    types.RunQueued,
		submitted: time.Now(),
		order:     make([]string, 0, len(events)),
		events:    make(map[string]*EventProgress, len(events)),
	}
	for _, ev := range events {
		t.order = append(t.order, ev.ID)
		t.events[ev.ID] = &EventProgress{EventID: ev.ID, Name: ev.Name, State: worker.StatePending}
	}
	return t
}

// begin moves a queued run to running. It returns false if the run was
// cancelled while it waited.
func (t *tracker) begin(cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done() {
		return false
	}
	t.status = types.RunRunning
	t.started = time.Now()
	t.cancel = cancel
	return true
}

func (t *tracker) finish(status types.RunStatus, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.finished = time.Now()
	t.cancel = nil
	if err != nil {
		t.err = err.Error()
	}
}

// requestCancel interrupts a running run between batches. A queued run is
// cancelled on the spot and never starts.
func (t *tracker) requestCancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.done():
		return ErrRunFinished
	case t.status == types.RunQueued:
		t.abandonLocked()
	case t.cancel != nil:
		t.cancel()
	}
	return nil
}

// abandon cancels a run that never started.
func (t *tracker) abandon() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == types.RunQueued {
		t.abandonLocked()
	}
}

func (t *tracker) abandonLocked() {
	for _, ep := range t.events {
		ep.State = worker.StateError
		ep.Reason = worker.ErrInterrupted.Error()
	}
	t.status = types.RunCancelled
	t.finished = time.Now()
}

func (t *tracker) done() bool {
	return t.status.Finished()
}

func (t *tracker) currentStatus() types.RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *tracker) isDone() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.done()
}

func (t *tracker) OnTransition(_ context.Context, tr worker.Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, ok := t.events[tr.EventID]
	if !ok {
		ep = &EventProgress{EventID: tr.EventID, Name: tr.Name}
		t.events[tr.EventID] = ep
		t.order = append(t.order, tr.EventID)
	}
	ep.State = tr.State
	ep.Reason = tr.Reason
}

func (t *tracker) OnRateLimit(_ context.Context, s worker.RateLimitSignal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rateLimit = &s
	t.rateLimitHits++
}

func (t *tracker) OnReport(_ context.Context, r report.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report = &r
}

func (t *tracker) view() RunView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v := RunView{
		ID:            t.id,
		Status:        t.status,
		SubmittedAt:   t.submitted,
		Events:        make([]EventProgress, 0, len(t.order)),
		RateLimitHits: t.rateLimitHits,
		Error:         t.err,
	}
	if !t.started.IsZero() {
		started := t.started
		v.StartedAt = &started
	}
	if !t.finished.IsZero() {
		finished := t.finished
		v.FinishedAt = &finished
	}
	if t.rateLimit != nil {
		sig := *t.rateLimit
		v.RateLimit = &sig
	}
	if t.report != nil {
		r := *t.report
		v.Report = &r
	}

	v.Counts.Total = len(t.order)
	for _, id := range t.order {
		ep := *t.events[id]
		v.Events = append(v.Events, ep)
		switch ep.State {
		case worker.StatePending:
			v.Counts.Pending++
		case worker.StateAnalyzing:
			v.Counts.Analyzing++
		case worker.StateCompleted:
			v.Counts.Completed++
		case worker.StateError:
			v.Counts.Failed++
		}
	}
	return v
}
