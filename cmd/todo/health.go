package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the todo API answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			health, err := api.Health(ctx)
			if err != nil {
				opts.logger.Error("health check failed", "api", api.BaseURL(), "err", err)
				return fmt.Errorf("health check: %w", err)
			}
			printOK(opts.stdout, fmt.Sprintf("%s %s", health.Status, health.Timestamp.Format(time.RFC3339)))
			return nil
		},
	}
}
