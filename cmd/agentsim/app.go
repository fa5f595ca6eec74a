package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/semih-duru/agent-capabilities-simulator/internal/config"
	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/llm"
	"github.com/semih-duru/agent-capabilities-simulator/internal/logging"
	"github.com/semih-duru/agent-capabilities-simulator/internal/scenario"
	"github.com/semih-duru/agent-capabilities-simulator/internal/session"
)

// app holds the collaborators shared by the commands that run games.
type app struct {
	cfg     *config.SimConfig
	dataDir string
	logger  *slog.Logger
	trace   *logging.TraceLogger
	lib     scenario.Library
	gen     llm.Generator
}

// loadConfig loads and validates the configuration named by --config.
func loadConfig(cmd *cobra.Command) (*config.SimConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configPath returns the file that config set writes to.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

// newApp loads configuration and opens the scenario library and content
// generator. Logs go to stderr so stdout stays free for results and MCP.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	root, _ := cmd.Flags().GetString("root")

	a := &app{
		cfg:     cfg,
		dataDir: scenario.DataDir(root),
		logger:  logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
	}
	a.trace = logging.NewTraceLogger(a.dataDir, cfg.Logging.Level)

	a.lib, err = openLibrary(cmd.Context(), cfg, a.dataDir)
	if err != nil {
		a.trace.Close()
		return nil, err
	}

	a.gen, err = llm.NewGenerator(cfg.ClientConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create content generator: %w", err)
	}
	a.logger.Debug("app ready",
		"backend", cfg.Scenarios.Backend,
		"generator", cfg.ClientConfig().Provider,
		"generator_available", a.gen.Available())
	return a, nil
}

// openLibrary opens the configured scenario library. File and SQLite
// libraries default to dataDir.
func openLibrary(ctx context.Context, cfg *config.SimConfig, dataDir string) (scenario.Library, error) {
	backend := cfg.Scenarios.Backend
	path := cfg.Scenarios.Path
	if path == "" && backend != scenario.BackendMemory && backend != "" {
		path = scenario.DefaultPath(dataDir, backend)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	lib, err := scenario.Open(ctx, backend, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario library: %w", err)
	}
	return lib, nil
}

// sessions builds an engine and a session manager around it. A non-zero
// seed makes random events reproducible; zero falls back to the config seed.
func (a *app) sessions(sink engine.EventSink, seed int64) (*session.Manager, error) {
	if seed == 0 {
		seed = a.cfg.Game.Seed
	}
	opts := engine.Options{
		Generator: a.gen,
		Scenarios: a.lib,
		Logger:    a.logger,
		Trace:     a.trace,
		Sink:      sink,
	}
	if seed != 0 {
		opts.RNG = engine.NewSeededRNG(seed)
	}
	eng, err := engine.New(a.cfg.EngineConfig(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return session.NewManager(eng, a.logger), nil
}

// warnIfEphemeral tells the user that library edits will not survive.
func (a *app) warnIfEphemeral(cmd *cobra.Command) {
	if b := a.cfg.Scenarios.Backend; b == "" || b == scenario.BackendMemory {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: scenario backend is memory; changes are lost on exit (set scenarios.backend to file or sqlite)")
	}
}

func (a *app) Close() {
	if a.lib != nil {
		if err := a.lib.Close(); err != nil {
			a.logger.Warn("closing scenario library", "error", err)
		}
	}
	a.trace.Close()
}
