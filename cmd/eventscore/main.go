// Command eventscore scores event batches locally or against a running server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/eventscore/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // build-time stamp

// Output formats shared by the score and submit commands.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "eventscore",
		Short: "Score event series for venue outreach",
		Long: `eventscore ranks imported event series by their suitability for hosting,
using edition history, region, contact quality and delegate counts.

Batches are YAML or JSON documents with events, contacts and optional criteria.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Logs go to stderr so reports on stdout stay pipeable.
			if err := logger.InitWith(cmd.ErrOrStderr(), logger.Format(opts.logFormat)); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", string(logger.FormatText), "log format (text, json)")

	root.AddCommand(newScoreCmd(), newSubmitCmd(), newVersionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop already called
	}
}
