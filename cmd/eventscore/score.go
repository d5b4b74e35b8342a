package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/eventscore/internal/adapters/mq/worker"
	repository "github.com/okian/eventscore/internal/adapters/repository"
	"github.com/okian/eventscore/internal/batch"
	"github.com/okian/eventscore/internal/config"
	"github.com/okian/eventscore/internal/domain/report"
	"github.com/okian/eventscore/internal/domain/scoring"
	"github.com/okian/eventscore/pkg/logger"
)

type scoreOptions struct {
	format  string
	width   int
	pause   time.Duration
	top     int
	qualify int
	drafts  int
	venue   string
	sqlite  string
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Score a batch locally and print the report",
		Long: `Scores every event of FILE ("-" reads stdin) with the batch scheduler and
prints the final report. Configuration comes from EVENTSCORE_* variables and
the optional EVENTSCORE_CONFIG file; flags override both.

With --sqlite, earlier results stored in that database are used as priors and
the new results are saved back.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.format, "format", formatMarkdown, "output format (markdown, json)")
	f.IntVar(&opts.width, "width", 0, "events scored concurrently per batch")
	f.DurationVar(&opts.pause, "pause", 0, "pause between batches")
	f.IntVar(&opts.top, "top", 0, "rows in the ranked section")
	f.IntVar(&opts.qualify, "qualify", 0, "minimum total score to qualify")
	f.IntVar(&opts.drafts, "drafts", 0, "outreach drafts to render")
	f.StringVar(&opts.venue, "venue", "", "venue named in outreach drafts")
	f.StringVar(&opts.sqlite, "sqlite", "", "SQLite database for prior results")
	return cmd
}

func runScore(cmd *cobra.Command, opts *scoreOptions, path string) error {
	ctx := cmd.Context()
	if opts.format != formatMarkdown && opts.format != formatJSON {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	applyScoreFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	b, err := batch.Load(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	log := logger.Get().Named("score")
	poolOpts := []worker.Option{
		worker.WithLogger(log),
		worker.WithPoolWidth(cfg.PoolWidth),
		worker.WithInterBatchPause(cfg.InterBatchPause()),
		worker.WithTaskTimeout(cfg.TaskTimeout()),
		worker.WithRateLimitRetries(cfg.RateLimitRetries),
		worker.WithReportOptions(
			report.WithTopN(cfg.ReportTopN),
			report.WithQualifyThreshold(cfg.QualifyThreshold),
			report.WithDraftCount(cfg.DraftCount),
			report.WithVenue(cfg.Venue),
		),
	}
	backoffBase, backoffMax := cfg.RateLimitBackoff()
	poolOpts = append(poolOpts, worker.WithRateLimitBackoff(backoffBase, backoffMax))

	var store *repository.SQLiteStore
	if cfg.StoreDriver == config.StoreSQLite {
		store, err = repository.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		poolOpts = append(poolOpts, worker.WithPriorLookup(store))
	}

	pool := worker.NewPool(worker.ScorerTask(scoring.NewScorer()), poolOpts...)
	res, runErr := pool.Run(ctx, b.Events, b.Contacts, b.CriteriaOr(cfg.Criteria), progressSink{log: log})

	if store != nil {
		saveCtx := context.WithoutCancel(ctx)
		for _, ev := range res.Scored {
			if _, err := store.Upsert(saveCtx, ev); err != nil {
				log.Warn(saveCtx, "failed to save result", logger.String("event", ev.CompanyName), logger.Error(err))
			}
		}
	}

	if err := writeReport(cmd.OutOrStdout(), res.Report, opts.format); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("scoring interrupted: %w", runErr)
	}
	return nil
}

// applyScoreFlags copies explicitly set flags over the loaded config.
func applyScoreFlags(cmd *cobra.Command, opts *scoreOptions, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("width") {
		cfg.PoolWidth = opts.width
	}
	if f.Changed("pause") {
		cfg.InterBatchPauseMS = int(opts.pause / time.Millisecond)
	}
	if f.Changed("top") {
		cfg.ReportTopN = opts.top
	}
	if f.Changed("qualify") {
		cfg.QualifyThreshold = opts.qualify
	}
	if f.Changed("drafts") {
		cfg.DraftCount = opts.drafts
	}
	if f.Changed("venue") {
		cfg.Venue = opts.venue
	}
	if f.Changed("sqlite") {
		cfg.StoreDriver = config.StoreSQLite
		cfg.SQLitePath = opts.sqlite
	}
}

func writeReport(w io.Writer, rep report.Report, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	_, err := io.WriteString(w, rep.Markdown())
	return err
}

// progressSink logs run progress.
type progressSink struct {
	log logger.Logger
}

func (s progressSink) OnTransition(ctx context.Context, t worker.Transition) {
	if t.State == worker.StateError {
		s.log.Info(ctx, "event failed", logger.String("event", t.Name), logger.String("reason", t.Reason))
		return
	}
	s.log.Debug(ctx, "event transition", logger.String("event", t.Name), logger.String("state", string(t.State)))
}

func (s progressSink) OnRateLimit(ctx context.Context, sig worker.RateLimitSignal) {
	s.log.Warn(ctx, "rate limited; backing off", logger.Int("retry_after_seconds", sig.RetryAfterSeconds))
}

func (s progressSink) OnReport(ctx context.Context, rep report.Report) {
	s.log.Info(ctx, "batch settled", logger.Int("scored", rep.Scored), logger.Int("skipped", rep.Skipped))
}
