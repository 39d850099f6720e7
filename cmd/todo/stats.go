package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show todo counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.app()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			if err := app.Load(ctx); err != nil {
				return reported(err)
			}
			s := app.Stats()

			if asJSON {
				return printJSON(opts.stdout, s)
			}
			fmt.Fprintf(opts.stdout, "%s %d  %s %d  %s %d\n",
				accentStyle.Render("Total"), s.Total,
				successStyle.Render("✔ done"), s.Completed,
				pendingStyle.Render("• pending"), s.Pending,
			)
			if s.PriorityCounts != nil {
				fmt.Fprintln(opts.stdout, mutedStyle.Render(fmt.Sprintf("high %d  medium %d  low %d",
					s.PriorityCounts.High, s.PriorityCounts.Medium, s.PriorityCounts.Low)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
