// Package logging builds the slog loggers used by the CLI.
package logging

import (
	"io"
	"log/slog"

	"github.com/phsym/console-slog"
)

// Options configures New.
type Options struct {
	// Verbose lowers the level to Debug.
	Verbose bool
	// NoColor disables ANSI colors, for output that is not a terminal.
	NoColor bool
}

// New returns a logger writing human-readable records to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := &slog.LevelVar{}
	level.Set(slog.LevelInfo)
	if opts.Verbose {
		level.Set(slog.LevelDebug)
	}
	return slog.New(console.NewHandler(w, &console.HandlerOptions{
		Level:   level,
		NoColor: opts.NoColor,
	}))
}
