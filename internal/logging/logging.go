// Package logging builds the charmbracelet/log loggers shared by both binaries.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type Options struct {
	Level           string
	Prefix          string
	JSON            bool
	ReportTimestamp bool
}

func DefaultOptions(prefix string) Options {
	return Options{
		Level:           "info",
		Prefix:          prefix,
		ReportTimestamp: true,
	}
}

// New returns a logger writing to stderr.
func New(opts Options) *log.Logger {
	return NewWithWriter(os.Stderr, opts)
}

func NewWithWriter(w io.Writer, opts Options) *log.Logger {
	formatter := log.TextFormatter
	if opts.JSON {
		formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(opts.Level),
		Prefix:          opts.Prefix,
		Formatter:       formatter,
		ReportTimestamp: opts.ReportTimestamp,
		TimeFormat:      time.RFC3339,
	})
}

// Discard is used where no output is wanted, mostly in tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(name string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}
