package main

import (
	"strings"

	"todoapp/internal/domain/models"

	"github.com/spf13/cobra"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var priority string

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.app()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			todo, err := app.Add(ctx, strings.Join(args, " "), models.Priority(priority))
			if err != nil {
				return reported(err)
			}
			printTodo(opts.stdout, todo)
			return nil
		},
	}

	cmd.Flags().StringVarP(&priority, "priority", "p", string(models.PriorityMedium), "low, medium or high")
	return cmd
}
