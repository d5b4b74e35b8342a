package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/eventscore/internal/adapters/http/api"
	"github.com/okian/eventscore/internal/adapters/http/swagger"
	"github.com/okian/eventscore/internal/adapters/mq/worker"
	repository "github.com/okian/eventscore/internal/adapters/repository"
	app "github.com/okian/eventscore/internal/app"
	"github.com/okian/eventscore/internal/config"
	"github.com/okian/eventscore/internal/domain/report"
	"github.com/okian/eventscore/pkg/logger"
	"github.com/okian/eventscore/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: logger has nothing buffered
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	registerRuntimeCollectors()

	svc, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = svc.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildService opens the configured store and assembles the service.
func buildService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	var store repository.Store
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		st, err := repository.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open result store: %w", err)
		}
		store = st
	default:
		store = repository.NewMemoryStore()
	}

	backoffBase, backoffMax := cfg.RateLimitBackoff()
	return app.New(
		app.WithLogger(logger.Get().Named("service")),
		app.WithStore(store),
		app.WithRunWorkers(cfg.RunWorkers),
		app.WithQueueSize(cfg.RunQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMaxEventsPerRun(cfg.MaxEventsPerRun),
		app.WithDefaultCriteria(cfg.Criteria),
		app.WithPoolOptions(
			worker.WithPoolWidth(cfg.PoolWidth),
			worker.WithInterBatchPause(cfg.InterBatchPause()),
			worker.WithTaskTimeout(cfg.TaskTimeout()),
			worker.WithRateLimitRetries(cfg.RateLimitRetries),
			worker.WithRateLimitBackoff(backoffBase, backoffMax),
		),
		app.WithReportOptions(
			report.WithTopN(cfg.ReportTopN),
			report.WithQualifyThreshold(cfg.QualifyThreshold),
			report.WithDraftCount(cfg.DraftCount),
			report.WithVenue(cfg.Venue),
		),
	), nil
}

// newMux registers the docs and business routes.
func newMux(ctx context.Context, svc *app.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)
	return mux
}

// registerRuntimeCollectors exposes Go runtime and process metrics on the
// service registry. Safe to call more than once.
func registerRuntimeCollectors() {
	reg := metrics.GetRegistry()
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateRunQueueSize(queueLen)
	}
	if stored, ok := stats["storedEvents"].(int); ok {
		metrics.UpdateStoredEvents(stored)
	}
}
