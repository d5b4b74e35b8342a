// Package worker schedules event scoring in bounded concurrent batches.
//
// Events are cut into consecutive batches of the pool width. Every event of
// a batch runs in its own goroutine and the batch is joined with settle-all
// semantics: a failing event never cancels its siblings. Results are
// accumulated in completion order and a fresh report is published after
// every batch.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/report"
	"github.com/okian/eventscore/internal/domain/scoring"
	"github.com/okian/eventscore/pkg/logger"
	"github.com/okian/eventscore/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultWidth       = 10
	defaultPause       = 200 * time.Millisecond
	defaultRetries     = 2
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 30 * time.Second
)

// Scorer computes the result for one event.
type Scorer interface {
	Score(event model.EventRecord, contacts []model.ContactRecord, criteria model.ScoringCriteria) (model.ScoredEvent, error)
}

// Task is the unit of work run for one event. A task that calls an external
// service reports quota failures as *RateLimitError.
type Task func(ctx context.Context, event model.EventRecord, contacts []model.ContactRecord, criteria model.ScoringCriteria) (model.ScoredEvent, error)

// ScorerTask adapts a synchronous Scorer into a Task.
func ScorerTask(s Scorer) Task {
	return func(ctx context.Context, event model.EventRecord, contacts []model.ContactRecord, criteria model.ScoringCriteria) (model.ScoredEvent, error) {
		if err := ctx.Err(); err != nil {
			return model.ScoredEvent{}, fmt.Errorf("score %s: %w", event.ID, err)
		}
		return s.Score(event, contacts, criteria)
	}
}

// PriorLookup returns the last completed result stored for an event name.
type PriorLookup interface {
	Get(ctx context.Context, name string) (model.ScoredEvent, error)
}

// Result is everything a run produced.
type Result struct {
	// Scored holds completed results in completion order.
	Scored []model.ScoredEvent
	// States and Failures are keyed by event ID.
	States        map[string]State
	Failures      map[string]string
	RateLimitHits int
	Report        report.Report
}

// Pool runs scoring tasks with bounded concurrency.
type Pool struct {
	task        Task
	width       int
	pause       time.Duration
	taskTimeout time.Duration
	retries     int
	backoffBase time.Duration
	backoffMax  time.Duration
	priors      PriorLookup
	reportOpts  []report.Option
	logger      logger.Logger
}

// NewPool creates a pool running task for every event.
func NewPool(task Task, opts ...Option) *Pool {
	p := &Pool{
		task:        task,
		width:       defaultWidth,
		pause:       defaultPause,
		retries:     defaultRetries,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
		logger:      logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// rateLimitHit is one quota failure seen by a task.
type rateLimitHit struct {
	hint time.Duration
	wait time.Duration
}

// outcome is what a task hands back to the joiner.
type outcome struct {
	index  int
	scored model.ScoredEvent
	err    error
	hits   []rateLimitHit
}

// run holds the joiner-owned state of one Run call.
type run struct {
	events   []model.EventRecord
	contacts []model.ContactRecord
	criteria model.ScoringCriteria
	priors   map[string]model.ScoredEvent
	sink     Sink
	res      Result
}

// Run scores events in batches and returns the accumulated result. Failures
// of single events are recorded in the result, never returned. The only
// error is a context cancellation observed between batches; the events that
// never started are then marked as interrupted.
func (p *Pool) Run(ctx context.Context, events []model.EventRecord, contacts []model.ContactRecord, criteria model.ScoringCriteria, sink Sink) (Result, error) {
	if sink == nil {
		sink = NopSink{}
	}
	r := &run{
		events:   withIDs(events),
		contacts: contacts,
		criteria: criteria,
		sink:     sink,
		res: Result{
			Scored:   []model.ScoredEvent{},
			States:   make(map[string]State, len(events)),
			Failures: make(map[string]string),
		},
	}
	r.priors = p.snapshotPriors(ctx, r.events)
	for _, ev := range r.events {
		p.transition(ctx, r, ev, StatePending, "")
	}

	limitedBatches := 0
	var lastHits []rateLimitHit
	for start, batchNo := 0, 1; start < len(r.events); start, batchNo = start+p.width, batchNo+1 {
		if start > 0 {
			wait := p.pause
			if len(lastHits) > 0 {
				limitedBatches++
				wait = max(wait, p.batchBackoff(lastHits, limitedBatches-1))
			} else {
				limitedBatches = 0
			}
			if err := sleep(ctx, wait); err != nil {
				return p.interrupt(ctx, r, start, batchNo, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return p.interrupt(ctx, r, start, batchNo, err)
		}

		end := min(start+p.width, len(r.events))
		lastHits = p.runBatch(ctx, r, r.events[start:end], batchNo)
		p.publish(ctx, r)
	}
	return r.res, nil
}

// runBatch fans the batch out and settles every task before returning.
func (p *Pool) runBatch(ctx context.Context, r *run, batch []model.EventRecord, batchNo int) []rateLimitHit {
	started := time.Now()
	for _, ev := range batch {
		p.transition(ctx, r, ev, StateAnalyzing, "")
	}

	// Tasks only stop on their own deadline; cancellation takes effect at the
	// next batch boundary.
	taskCtx := context.WithoutCancel(ctx)
	outcomes := make(chan outcome, len(batch))
	var g errgroup.Group
	for i, ev := range batch {
		g.Go(func() error {
			outcomes <- p.execute(taskCtx, i, ev, r.contacts, r.criteria)
			return nil
		})
	}
	_ = g.Wait() // tasks report failures through outcomes
	close(outcomes)

	var (
		hits    []rateLimitHit
		settled = make([]bool, len(batch))
		failed  int
	)
	for o := range outcomes {
		settled[o.index] = true
		ev := batch[o.index]
		for _, h := range o.hits {
			hits = append(hits, h)
			r.res.RateLimitHits++
			metrics.RecordRateLimitHit()
			r.sink.OnRateLimit(ctx, RateLimitSignal{RetryAfterSeconds: seconds(max(h.hint, h.wait))})
		}
		if o.err != nil {
			failed++
			p.fail(ctx, r, ev, o.err)
			continue
		}
		p.complete(ctx, r, ev, o.scored)
	}
	for i, ok := range settled {
		if !ok {
			failed++
			p.fail(ctx, r, batch[i], ErrInterrupted)
		}
	}

	metrics.RecordBatchDuration(time.Since(started).Seconds())
	p.logger.Info(ctx, "batch settled",
		logger.Int("batch", batchNo),
		logger.Int("size", len(batch)),
		logger.Int("failed", failed),
		logger.Int("rate_limit_hits", len(hits)),
		logger.Duration("elapsed", time.Since(started)),
	)
	return hits
}

// execute runs one task, retrying quota failures after a backoff.
func (p *Pool) execute(ctx context.Context, index int, ev model.EventRecord, contacts []model.ContactRecord, criteria model.ScoringCriteria) (o outcome) {
	o.index = index
	defer func() {
		if rec := recover(); rec != nil {
			o.scored = model.ScoredEvent{}
			o.err = fmt.Errorf("%w: %v", ErrTaskPanic, rec)
		}
	}()

	for attempt := 0; ; attempt++ {
		scored, err := p.attempt(ctx, ev, contacts, criteria)
		if err == nil {
			o.scored, o.err = scored, nil
			return o
		}
		o.err = err
		if !IsRateLimit(err) {
			return o
		}
		hint := retryAfter(err)
		wait := min(max(hint, p.backoff(attempt)), p.backoffMax)
		o.hits = append(o.hits, rateLimitHit{hint: hint, wait: wait})
		if attempt >= p.retries {
			return o
		}
		if sleep(ctx, wait) != nil {
			return o
		}
	}
}

func (p *Pool) attempt(ctx context.Context, ev model.EventRecord, contacts []model.ContactRecord, criteria model.ScoringCriteria) (model.ScoredEvent, error) {
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}
	started := time.Now()
	defer func() {
		metrics.RecordScoringLatency(float64(time.Since(started).Microseconds()) / 1000)
	}()
	return p.task(ctx, ev, contacts, criteria)
}

// complete records a successful score. A zero re-score never replaces a
// positive prior result for the same event name.
func (p *Pool) complete(ctx context.Context, r *run, ev model.EventRecord, scored model.ScoredEvent) {
	if prior, ok := r.priors[ev.ID]; ok && scored.TotalScore == 0 {
		p.logger.Info(ctx, "keeping prior result over zero score",
			logger.String("event_id", ev.ID),
			logger.String("name", ev.Name),
			logger.Int("prior_total", prior.TotalScore),
		)
		scored = prior
		scored.EventID = ev.ID
	}
	r.res.Scored = append(r.res.Scored, scored)
	metrics.RecordEventScored(scored.TotalScore)
	p.transition(ctx, r, ev, StateCompleted, "")
}

func (p *Pool) fail(ctx context.Context, r *run, ev model.EventRecord, err error) {
	kind := errorKind(err)
	metrics.RecordEventError(kind)
	metrics.RecordErrorByComponent("scheduler", kind)
	p.logger.Warn(ctx, "event failed",
		logger.String("event_id", ev.ID),
		logger.String("name", ev.Name),
		logger.String("kind", kind),
		logger.Error(err),
	)
	p.transition(ctx, r, ev, StateError, err.Error())
}

// transition publishes a state change unless the event is already terminal.
func (p *Pool) transition(ctx context.Context, r *run, ev model.EventRecord, state State, reason string) {
	if cur, ok := r.res.States[ev.ID]; ok && cur.Terminal() {
		return
	}
	r.res.States[ev.ID] = state
	if state == StateError {
		r.res.Failures[ev.ID] = reason
	}
	r.sink.OnTransition(ctx, Transition{EventID: ev.ID, Name: ev.Name, State: state, Reason: reason})
}

func (p *Pool) publish(ctx context.Context, r *run) {
	r.res.Report = report.Assemble(r.res.Scored, len(r.events), len(r.res.Failures), p.reportOpts...)
	r.sink.OnReport(ctx, r.res.Report)
}

// interrupt fails every event from start on and publishes the final report.
func (p *Pool) interrupt(ctx context.Context, r *run, start, batchNo int, cause error) (Result, error) {
	p.logger.Warn(ctx, "run stopped between batches",
		logger.Int("next_batch", batchNo),
		logger.Int("remaining", len(r.events)-start),
		logger.Error(cause),
	)
	for _, ev := range r.events[start:] {
		p.fail(ctx, r, ev, ErrInterrupted)
	}
	p.publish(ctx, r)
	return r.res, fmt.Errorf("run stopped before batch %d: %w", batchNo, cause)
}

// snapshotPriors reads positive prior results once, before any task runs.
func (p *Pool) snapshotPriors(ctx context.Context, events []model.EventRecord) map[string]model.ScoredEvent {
	if p.priors == nil {
		return nil
	}
	out := make(map[string]model.ScoredEvent)
	for _, ev := range events {
		prior, err := p.priors.Get(ctx, strings.TrimSpace(ev.Name))
		if err != nil {
			p.logger.Debug(ctx, "no prior result", logger.String("name", ev.Name), logger.Error(err))
			continue
		}
		if prior.TotalScore > 0 {
			out[ev.ID] = prior
		}
	}
	return out
}

// backoff is base * 2^attempt, capped.
func (p *Pool) backoff(attempt int) time.Duration {
	d := p.backoffBase
	for i := 0; i < attempt && d < p.backoffMax; i++ {
		d *= 2
	}
	return min(d, p.backoffMax)
}

// batchBackoff is the wait before the batch after a rate-limited one.
func (p *Pool) batchBackoff(hits []rateLimitHit, streak int) time.Duration {
	var hint time.Duration
	for _, h := range hits {
		hint = max(hint, h.hint)
	}
	return min(max(hint, p.backoff(streak)), p.backoffMax)
}

// withIDs copies events and gives a fresh ID to every event whose ID is
// empty or already taken by an earlier event, so states never collide.
func withIDs(events []model.EventRecord) []model.EventRecord {
	out := make([]model.EventRecord, len(events))
	copy(out, events)
	seen := make(map[string]struct{}, len(out))
	for i := range out {
		if _, dup := seen[out[i].ID]; out[i].ID == "" || dup {
			out[i].ID = uuid.NewString()
		}
		seen[out[i].ID] = struct{}{}
	}
	return out
}

func errorKind(err error) string {
	switch {
	case IsRateLimit(err):
		return "rate_limit"
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	case errors.Is(err, ErrTaskPanic):
		return "panic"
	case errors.Is(err, scoring.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "task"
	}
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
