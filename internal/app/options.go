package service

import (
	"github.com/okian/eventscore/internal/adapters/mq/worker"
	repository "github.com/okian/eventscore/internal/adapters/repository"
	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/report"
	"github.com/okian/eventscore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRunWorkers sets how many runs are processed concurrently.
func WithRunWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.runWorkers = count
		}
	}
}

// WithQueueSize sets the maximum number of queued runs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxEventsPerRun caps the events accepted by one submission.
func WithMaxEventsPerRun(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

// WithRunRetention sets how many runs are kept for status queries.
func WithRunRetention(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retention = n
		}
	}
}

// WithDefaultCriteria sets the criteria for submissions that carry none.
func WithDefaultCriteria(c model.ScoringCriteria) Option {
	return func(s *Service) {
		s.criteria = c
	}
}

// WithStore sets the result store. The service owns it and closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithTask replaces the per-event task run by the scheduler.
func WithTask(t worker.Task) Option {
	return func(s *Service) {
		if t != nil {
			s.task = t
		}
	}
}

// WithPoolOptions configures the scheduler.
func WithPoolOptions(opts ...worker.Option) Option {
	return func(s *Service) {
		s.poolOpts = append(s.poolOpts, opts...)
	}
}

// WithReportOptions configures reports of every run.
func WithReportOptions(opts ...report.Option) Option {
	return func(s *Service) {
		s.reportOpts = append(s.reportOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
