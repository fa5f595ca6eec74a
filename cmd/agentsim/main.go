package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentsim",
		Short: "Agent capabilities simulator",
		Long: `agentsim is a turn-based simulation of building an enterprise agentic
platform. Spend budget, time and people on decisions, grow five capability
maturities, launch to production and live with the consequences.

Play in the terminal, serve the HTTP API, or let an agent play over MCP.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.agentsim/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newMCPServerCmd(),
		newPlayCmd(),
		newScenariosCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
