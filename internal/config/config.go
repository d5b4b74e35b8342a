// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers .env, an optional YAML file and EVENTSCORE_* env vars on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"

	"github.com/okian/eventscore/internal/domain/model"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Scheduler
	PoolWidth             int `koanf:"pool_width"`
	InterBatchPauseMS     int `koanf:"inter_batch_pause_ms"`
	TaskTimeoutMS         int `koanf:"task_timeout_ms"`
	RateLimitRetries      int `koanf:"rate_limit_retries"`
	RateLimitBackoffMS    int `koanf:"rate_limit_backoff_ms"`
	RateLimitMaxBackoffMS int `koanf:"rate_limit_max_backoff_ms"`

	// Report
	ReportTopN       int    `koanf:"report_top_n"`
	QualifyThreshold int    `koanf:"qualify_threshold"`
	DraftCount       int    `koanf:"draft_count"`
	Venue            string `koanf:"venue"`

	// Runs
	RunQueueSize    int `koanf:"run_queue_size"`
	RunWorkers      int `koanf:"run_workers"`
	DedupeSize      int `koanf:"dedupe_size"`
	MaxEventsPerRun int `koanf:"max_events_per_run"`

	// StoreDriver selects the result store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Criteria are applied to runs that do not carry their own.
	Criteria model.ScoringCriteria `koanf:"criteria"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		PoolWidth:             10,
		InterBatchPauseMS:     200,
		TaskTimeoutMS:         0,
		RateLimitRetries:      2,
		RateLimitBackoffMS:    1_000,
		RateLimitMaxBackoffMS: 30_000,
		ReportTopN:            20,
		QualifyThreshold:      30,
		DraftCount:            3,
		Venue:                 "our convention centre",
		RunQueueSize:          64,
		RunWorkers:            2,
		DedupeSize:            10_000,
		MaxEventsPerRun:       5_000,
		StoreDriver:           StoreMemory,
		SQLitePath:            "data/eventscore.db",
		MaxLeaderboardLimit:   100,
		Criteria:              model.AllCriteria(),
	}
}

// InterBatchPause returns the pause between scheduler batches.
func (c *Config) InterBatchPause() time.Duration {
	return ms(c.InterBatchPauseMS)
}

// TaskTimeout returns the per-event timeout; zero disables it.
func (c *Config) TaskTimeout() time.Duration {
	return ms(c.TaskTimeoutMS)
}

// RateLimitBackoff returns the base and maximum rate-limit waits.
func (c *Config) RateLimitBackoff() (base, maxWait time.Duration) {
	return ms(c.RateLimitBackoffMS), ms(c.RateLimitMaxBackoffMS)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
