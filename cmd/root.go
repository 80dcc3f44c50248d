// Package cmd wires the vibedrive command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vibedrive",
	Short: "vibedrive - in-cabin ambience orchestration service",
	Long: `vibedrive turns driving-environment snapshots into coordinated cabin
ambience plans (music, light, scent, massage, narrative) through a
tool-calling agent, and fronts them with a driver-facing dialog.

Run "vibedrive serve" to start the HTTP API.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
