package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"todoapp/internal/client"
	"todoapp/internal/logging"
	"todoapp/internal/ui"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	defaultAPIURL = "http://localhost:3000/api"
	apiURLEnv     = "TODO_API_URL"
	debugLogFile  = "todo-debug.log"
)

type rootOptions struct {
	apiURL  string
	timeout time.Duration
	verbose bool

	stdout io.Writer
	stderr io.Writer
	logger *log.Logger
}

// reportedError is a failure the notifier already showed to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	apiDefault := os.Getenv(apiURLEnv)
	if apiDefault == "" {
		apiDefault = defaultAPIURL
	}

	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage todos through the todo API",
		Long: `todo talks to the todo API behind the edge server.
Without a subcommand it opens the interactive view.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logOpts := logging.DefaultOptions("todo")
			logOpts.Level = "warn"
			if opts.verbose {
				logOpts.Level = "debug"
			}
			opts.logger = logging.NewWithWriter(opts.stderr, logOpts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runInteractive(cmd.Context())
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", apiDefault, "todo API base URL (env "+apiURLEnv+")")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newToggleCmd(opts),
		newEditCmd(opts),
		newRemoveCmd(opts),
		newStatsCmd(opts),
		newHealthCmd(opts),
	)
	return cmd
}

// execute runs cmd and maps the outcome to an exit code.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.Execute(); err != nil {
		var shown reportedError
		if !stderrors.As(err, &shown) {
			printFail(stderr, err.Error())
		}
		return 1
	}
	return 0
}

func (o *rootOptions) api() (*client.API, error) {
	return client.NewAPI(o.apiURL, client.WithTimeout(o.timeout))
}

// app builds a controller that prints notices to stderr.
func (o *rootOptions) app() (*client.App, error) {
	api, err := o.api()
	if err != nil {
		return nil, err
	}
	return client.NewApp(api, consoleNotifier{w: o.stderr}, o.logger), nil
}

func (o *rootOptions) context(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, o.timeout)
}

func (o *rootOptions) runInteractive(ctx context.Context) error {
	api, err := o.api()
	if err != nil {
		return err
	}

	// The view owns the terminal, so logs go to a file or nowhere.
	logger := logging.Discard()
	if o.verbose {
		f, err := os.OpenFile(debugLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", debugLogFile, err)
		}
		defer f.Close()
		logOpts := logging.DefaultOptions("todo")
		logOpts.Level = "debug"
		logger = logging.NewWithWriter(f, logOpts)
	}

	bridge := ui.NewBridge()
	app := client.NewApp(api, bridge, logger)
	return ui.Run(ctx, app, bridge, o.timeout)
}
