package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"NewsAggregator/internal/app"
	"NewsAggregator/internal/config"
	"NewsAggregator/internal/logging"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "newsaggregator",
		Short: "AI news aggregation for small businesses",
		Long: `newsaggregator fetches AI news from public sources, scores it for
small-business relevance and serves the best items over HTTP.

Example usage:
  newsaggregator serve                         # HTTP API plus scheduled refresh
  newsaggregator fetch --priority business     # One run, printed as JSON
  newsaggregator migrate                       # Create the snapshot schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default: $NEWS_AGGREGATOR_CONFIG)")

	cmd.AddCommand(
		newServeCmd(opts),
		newFetchCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// bootstrap loads the configuration and builds the application.
func (o *rootOptions) bootstrap(ctx context.Context) (*app.Application, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewWithFormat(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init application: %w", err)
	}
	return application, logger, nil
}
