package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs read before anything else.
const (
	EnvPrefix  = "EVENTSCORE_"
	EnvConfig  = EnvPrefix + "CONFIG"
	EnvDotFile = EnvPrefix + "ENV_FILE"
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true} //nolint:gochecknoglobals // lookup table

// Load builds a Config by layering defaults, .env, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env (EVENTSCORE_ENV_FILE, default ".env"); never overrides real env vars
//  3. file (YAML) if EVENTSCORE_CONFIG is set
//  4. env (prefix EVENTSCORE_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	base := New()

	dotfile := os.Getenv(EnvDotFile)
	if dotfile == "" {
		dotfile = ".env"
	}
	if err := godotenv.Load(dotfile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, dotfile, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// EVENTSCORE_POOL_WIDTH -> pool_width, EVENTSCORE_CRITERIA__CONTACT -> criteria.contact
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// Control variables are not config keys.
	k.Delete("config")
	k.Delete("env_file")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		problems = append(problems, fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}
	if c.PoolWidth < 1 {
		problems = append(problems, "pool_width must be at least 1")
	}
	if c.InterBatchPauseMS < 0 || c.TaskTimeoutMS < 0 {
		problems = append(problems, "durations must not be negative")
	}
	if c.RateLimitRetries < 0 {
		problems = append(problems, "rate_limit_retries must not be negative")
	}
	if c.RateLimitBackoffMS <= 0 || c.RateLimitMaxBackoffMS < c.RateLimitBackoffMS {
		problems = append(problems, "rate_limit_backoff_ms must be positive and not exceed rate_limit_max_backoff_ms")
	}
	if c.ReportTopN < 1 || c.DraftCount < 0 {
		problems = append(problems, "report_top_n must be at least 1 and draft_count not negative")
	}
	if c.RunQueueSize < 1 || c.RunWorkers < 1 {
		problems = append(problems, "run_queue_size and run_workers must be at least 1")
	}
	if c.MaxEventsPerRun < 1 || c.MaxLeaderboardLimit < 1 {
		problems = append(problems, "max_events_per_run and max_leaderboard_limit must be at least 1")
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "sqlite_path must not be empty for the sqlite driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store_driver %q", c.StoreDriver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
