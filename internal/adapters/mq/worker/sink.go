package worker

import (
	"context"

	"github.com/okian/eventscore/internal/domain/report"
)

// State is the lifecycle position of one event within a run.
type State string

// Event states. Completed and error are terminal.
const (
	StatePending   State = "pending"
	StateAnalyzing State = "analyzing"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Transition is one state change of one event.
type Transition struct {
	EventID string `json:"event_id"`
	Name    string `json:"name"`
	State   State  `json:"state"`
	Reason  string `json:"reason,omitempty"`
}

// RateLimitSignal tells callers to hold off triggering further runs.
// RetryAfterSeconds is the larger of the quota owner's hint and the
// computed backoff; the hint is reported as given, even when the pool
// itself waits less.
type RateLimitSignal struct {
	RetryAfterSeconds int `json:"retry_after_seconds"`
}

// Sink observes a run. All calls come from the goroutine running Pool.Run,
// in order.
type Sink interface {
	OnTransition(ctx context.Context, t Transition)
	OnRateLimit(ctx context.Context, s RateLimitSignal)
	OnReport(ctx context.Context, r report.Report)
}

// NopSink discards every notification.
type NopSink struct{}

func (NopSink) OnTransition(context.Context, Transition)     {}
func (NopSink) OnRateLimit(context.Context, RateLimitSignal) {}
func (NopSink) OnReport(context.Context, report.Report)      {}
