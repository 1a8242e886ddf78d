// Package cli implements the diagram command-line interface.
//
// This package provides commands for editing diagram documents (JSON files
// of boxes and arrows), rendering them through Graphviz, saving them to a
// host or a local store, serving the reference host, and an interactive
// terminal editor. The CLI is built using cobra and supports verbose
// logging via the charmbracelet/log library.
//
// # Commands
//
// Document commands read a JSON document, apply one edit through the
// editor core and write the result back:
//   - validate, export, inspect
//   - add, remove, move, connect, detach
//   - dot: DOT, SVG, PNG or PDF output
//
// Project commands talk to the configured host or store:
//   - save, load, versions
//   - serve: run the reference HTTP host
//   - edit: interactive editor with save
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so libraries log with the same settings.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/checklistapp/diagram/pkg/buildinfo"
)

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(c.out, buildinfo.String())
		},
	}
}
