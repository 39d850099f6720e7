package main

import (
	"fmt"

	"todoapp/internal/domain/models"

	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		filter string
		search string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseFilter(filter)
			if err != nil {
				return fmt.Errorf("%w: %q", err, filter)
			}

			app, err := opts.app()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			if err := app.Load(ctx); err != nil {
				return reported(err)
			}
			app.SetFilter(f)
			app.SetSearch(search)
			todos := app.Filtered()

			if asJSON {
				return printJSON(opts.stdout, todos)
			}
			if len(todos) == 0 {
				fmt.Fprintln(opts.stdout, mutedStyle.Render("No todos."))
				return nil
			}
			for _, t := range todos {
				printTodo(opts.stdout, t)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", string(models.FilterAll), "all, completed or pending")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive text match")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
