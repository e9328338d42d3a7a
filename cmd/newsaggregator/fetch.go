package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"NewsAggregator/internal/domain"
)

func newFetchCmd(root *rootOptions) *cobra.Command {
	var filters domain.Filters

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the pipeline once and print the selection as JSON",
		Long: `Run one aggregation over every enabled source and print the result.

Examples:
  newsaggregator fetch
  newsaggregator fetch --category ai-tools --source "Dev.to"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			application, logger, err := root.bootstrap(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Migrate(ctx); err != nil {
				logger.Warn("schema migration skipped", "error", err)
			}

			result := application.Pipeline().GetNews(ctx, filters)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&filters.Category, "category", "", "only items tagged with this category")
	cmd.Flags().StringVar(&filters.Priority, "priority", "", "only items with this priority")
	cmd.Flags().StringVar(&filters.Source, "source", "", "only items from this source")
	return cmd
}
