package main

import (
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled refresh",
		Args:  cobra.NoArgs,
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
			return application.Serve(ctx)
		},
	}
}
