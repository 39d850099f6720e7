package main

import (
	"fmt"
	"strconv"

	"todoapp/internal/domain/errors"

	"github.com/spf13/cobra"
)

func newToggleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [id]",
		Short: "Mark a todo completed, or reopen it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := opts.app()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			todo, err := app.ToggleCompleted(ctx, id)
			if err != nil {
				return reported(err)
			}
			printTodo(opts.stdout, todo)
			return nil
		},
	}
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidID, arg)
	}
	return id, nil
}
