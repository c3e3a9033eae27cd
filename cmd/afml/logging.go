// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns the handler behind slog.Default for the CLI.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          "afml",
		Level:           level,
		ReportTimestamp: verbose,
	})
}

func installLogger(w io.Writer, verbose bool) {
	slog.SetDefault(slog.New(newLogger(w, verbose)))
}
