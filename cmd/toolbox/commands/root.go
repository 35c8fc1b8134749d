package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPaths []string
	verbose     bool
	jsonOutput  bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "toolbox",
		Short: "Toolbox - area brick configuration and headless rendering",
		Long: `Toolbox resolves declarative area brick configuration into editable
trees and turns rendered pages into headless element payloads.

Features:
  - Layered YAML configuration with per-context overrides
  - Structural schema checks via CUE
  - Editable tree building with tabs and column adjusters
  - Property normalizers, including Starlark scripts
  - Lint policies via OPA/rego
  - Payload journal on SQLite`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringSliceVarP(&configPaths, "config", "c", nil, "configuration file or directory (repeatable, merged in order)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newCheckConfigCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newTreeCommand())
	rootCmd.AddCommand(newRenderCommand())

	return rootCmd
}
