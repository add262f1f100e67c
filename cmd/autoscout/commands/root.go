// Package commands wires the autoscout CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wueestry/autoscout/pkg/config"
	"github.com/wueestry/autoscout/pkg/engine"
	"github.com/wueestry/autoscout/pkg/logging"
)

// NewRootCommand constructs the top-level autoscout command, wiring global
// flags, configuration loading, and logging setup.
func NewRootCommand() *cobra.Command {
	var (
		configFile string
		verbosity  int
	)
	cfgManager := config.NewManager()

	cmd := &cobra.Command{
		Use:   "autoscout",
		Short: "Autoscout is an automated reconnaissance framework",
		Long: `Autoscout orchestrates pluggable scans against a target host. Scans
decide for themselves whether to run based on accumulated findings, run
sequentially or concurrently per stage, and feed their results back into
a shared context consumed by later scans.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfgManager.Load(cmd.Flags(), configFile); err != nil {
				return err
			}
			level := logging.ParseLevel(cfgManager.Get().Log.Level)
			if verbosity > 0 {
				level = logging.LevelFromVerbosity(verbosity)
			}
			logging.Configure(level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().CountVarP(&verbosity, "verbosity", "v", "Increase logging verbosity (repeatable)")
	cmd.PersistentFlags().String("log.level", "", "Log level (trace, debug, info, warn, error)")

	cmd.AddCommand(newScanCommand(cfgManager))
	cmd.AddCommand(newScansCommand(cfgManager))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return engine.ExitCode(err)
	}
	return 0
}
