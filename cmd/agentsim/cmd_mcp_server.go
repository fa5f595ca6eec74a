package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semih-duru/agent-capabilities-simulator/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run as an MCP server over stdio",
		Long: `Expose the simulator as Model Context Protocol tools so an agent can
play: sim_new_game, sim_state, sim_decisions, sim_decide, sim_advance,
sim_launch, sim_end and sim_scenarios.

Tool calls are audited to .agentsim/audit.jsonl under --root.

Example MCP client configuration:
  {
    "mcpServers": {
      "agentsim": {
        "command": "agentsim",
        "args": ["mcp-server"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			seed, _ := cmd.Flags().GetInt64("seed")
			sessions, err := a.sessions(nil, seed)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "agentsim",
				Version:   version,
				Sessions:  sessions,
				Scenarios: a.lib,
				AuditDir:  a.dataDir,
				Logger:    a.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			a.logger.Info("mcp server starting", "version", version)
			if err := server.Run(cmd.Context()); err != nil {
				return fmt.Errorf("mcp server failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Int64("seed", 0, "Seed for random events (0 uses game.seed, then the clock)")
	return cmd
}
