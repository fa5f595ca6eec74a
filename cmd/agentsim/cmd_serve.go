package main

import (
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/semih-duru/agent-capabilities-simulator/internal/api"
	"github.com/semih-duru/agent-capabilities-simulator/internal/ratelimit"
)

// HTTP clients get a generous per-address budget; the tight limits sit on
// the MCP tools.
const (
	httpRequestsPerMinute = 600
	httpBurst             = 100
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game and scenario library over HTTP",
		Long: `Start the HTTP API. Game events are streamed to websocket clients at
/api/game/events/ws.

Examples:
  agentsim serve                        # Listen on server.addr (default 127.0.0.1:8000)
  agentsim serve --addr 0.0.0.0:9000    # Listen on all interfaces`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			seed, _ := cmd.Flags().GetInt64("seed")

			hub := api.NewHub(a.logger)
			sessions, err := a.sessions(hub, seed)
			if err != nil {
				return err
			}
			srv := api.NewServer(api.Options{
				Sessions:       sessions,
				Scenarios:      a.lib,
				Generator:      a.gen,
				Hub:            hub,
				Limiter:        ratelimit.PerMinute(httpRequestsPerMinute, httpBurst),
				ExtractTimeout: a.cfg.LLM.Timeout,
				Logger:         a.logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "agentsim API listening on http://%s\n", addr)
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().Int64("seed", 0, "Seed for random events (0 uses game.seed, then the clock)")
	return cmd
}
