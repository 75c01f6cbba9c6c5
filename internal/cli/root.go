// Package cli wires the drover commands: the sweep driver, single
// bench passes, and the probe helper.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "drover",
	Short:   "Benchmark sweep driver for HTTP services",
	Version: version,
	Long: `Drover drives benchmark sweeps against an HTTP service. For every
concurrency level and repetition it brings the service under test up,
waits for readiness, optionally warms the target, runs a load pass,
appends a report block to the per-run log file, and tears the service
down again.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute runs the root command. It returns the error so main owns the
// process exit code; cobra has already printed it.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	// Add subcommands to root command
	RootCmd.AddCommand(sweepCmd)
	RootCmd.AddCommand(benchCmd)
	RootCmd.AddCommand(probeCmd)
}
