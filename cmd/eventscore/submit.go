package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/eventscore/internal/batch"
	"github.com/okian/eventscore/internal/client"
	"github.com/okian/eventscore/pkg/logger"
)

type submitOptions struct {
	url      string
	key      string
	wait     bool
	interval time.Duration
	timeout  time.Duration
	format   string
}

func newSubmitCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Submit a batch to a running eventscore server",
		Long: `Posts FILE ("-" reads stdin) as a new run. With --wait the command polls the
run until it finishes and prints its report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "http://localhost:9080", "server base URL")
	f.StringVar(&opts.key, "key", "", "idempotency key (overrides the batch file)")
	f.BoolVar(&opts.wait, "wait", false, "wait for the run to finish and print its report")
	f.DurationVar(&opts.interval, "interval", time.Second, "poll interval while waiting")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	f.StringVar(&opts.format, "format", formatMarkdown, "report format when waiting (markdown, json)")
	return cmd
}

func runSubmit(cmd *cobra.Command, opts *submitOptions, path string) error {
	ctx := cmd.Context()
	if opts.format != formatMarkdown && opts.format != formatJSON {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	b, err := batch.Load(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if opts.key != "" {
		b.IdempotencyKey = opts.key
	}

	log := logger.Get().Named("submit")
	c := client.New(opts.url, client.WithTimeout(opts.timeout))
	ack, err := c.Submit(ctx, b)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	log.Info(ctx, "run submitted", logger.String("run_id", ack.RunID), logger.Bool("duplicate", ack.Duplicate), logger.Int("events", ack.Events))

	out := cmd.OutOrStdout()
	if !opts.wait {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ack)
	}

	view, err := c.Wait(ctx, ack.RunID, opts.interval)
	if err != nil {
		return err
	}
	log.Info(ctx, "run finished", logger.String("run_id", ack.RunID), logger.String("status", string(view.Status)))

	rep, err := c.Report(ctx, ack.RunID)
	if err != nil {
		return fmt.Errorf("fetch report: %w", err)
	}
	return writeReport(out, rep, opts.format)
}
