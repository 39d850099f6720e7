package main

import (
	"fmt"

	"todoapp/internal/domain/errors"
	"todoapp/internal/domain/models"

	"github.com/spf13/cobra"
)

func newEditCmd(opts *rootOptions) *cobra.Command {
	var (
		text      string
		priority  string
		completed bool
	)

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change the text, priority or completion of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var req models.UpdateTodoRequest
			flags := cmd.Flags()
			if flags.Changed("text") {
				req.Text = &text
			}
			if flags.Changed("priority") {
				p := models.Priority(priority)
				req.Priority = &p
			}
			if flags.Changed("completed") {
				req.Completed = &completed
			}
			if req.Empty() {
				return fmt.Errorf("%w: set --text, --priority or --completed", errors.ErrBadRequest)
			}

			app, err := opts.app()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			todo, err := app.Update(ctx, id, req)
			if err != nil {
				return reported(err)
			}
			printTodo(opts.stdout, todo)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "new text")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().BoolVar(&completed, "completed", false, "completion state")
	return cmd
}
