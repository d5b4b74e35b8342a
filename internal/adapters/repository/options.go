package repository

import "github.com/okian/eventscore/pkg/logger"

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	log          logger.Logger
	maxOpenConns int
}

// WithLogger sets the logger used by the store.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxOpenConns bounds the SQLite connection pool. Ignored by MemoryStore.
func WithMaxOpenConns(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{maxOpenConns: 1}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("repository")
	}
	return s
}
