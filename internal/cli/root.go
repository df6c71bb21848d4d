// Package cli implements the skeletonsim command-line interface.
//
// skeletonsim builds procedural hanging skeletons and runs the articulated
// solver over them, printing residuals and support forces.
//
// # Commands
//
//   - solve: build a chain or tree and run the clamp loop for a number of steps
//   - config: print the effective solver configuration as TOML
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// turns on the skeleton's own debug output. The logger travels through
// context.Context.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Execute runs the skeletonsim CLI and returns an error if any command fails.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "skeletonsim",
		Short:        "skeletonsim solves articulated skeletons under gravity",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().String("config", "", "solver config file (TOML)")

	root.AddCommand(newSolveCmd())
	root.AddCommand(newConfigCmd())
	return root
}
