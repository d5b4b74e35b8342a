package worker

import (
	"time"

	"github.com/okian/eventscore/internal/domain/report"
	"github.com/okian/eventscore/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithPoolWidth sets how many events run concurrently per batch.
func WithPoolWidth(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.width = n
		}
	}
}

// WithInterBatchPause sets the pause between batches. Zero disables it.
func WithInterBatchPause(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.pause = d
		}
	}
}

// WithTaskTimeout bounds each task with its own deadline. Zero disables it.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.taskTimeout = d
		}
	}
}

// WithRateLimitRetries sets how many times a rate-limited task is retried
// before its event is marked as failed.
func WithRateLimitRetries(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.retries = n
		}
	}
}

// WithRateLimitBackoff sets the exponential backoff base and its cap.
func WithRateLimitBackoff(base, maxBackoff time.Duration) Option {
	return func(p *Pool) {
		if base > 0 && maxBackoff >= base {
			p.backoffBase = base
			p.backoffMax = maxBackoff
		}
	}
}

// WithPriorLookup sets where previously completed results are read from.
func WithPriorLookup(l PriorLookup) Option {
	return func(p *Pool) {
		if l != nil {
			p.priors = l
		}
	}
}

// WithReportOptions configures the report assembled after every batch.
func WithReportOptions(opts ...report.Option) Option {
	return func(p *Pool) {
		p.reportOpts = append(p.reportOpts, opts...)
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
