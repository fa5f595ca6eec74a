// Package mcp exposes the simulator as MCP (Model Context Protocol) tools so
// an agent can play the game over stdio.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/semih-duru/agent-capabilities-simulator/internal/logging"
	"github.com/semih-duru/agent-capabilities-simulator/internal/ratelimit"
	"github.com/semih-duru/agent-capabilities-simulator/internal/scenario"
	"github.com/semih-duru/agent-capabilities-simulator/internal/session"
)

// Server wraps the MCP SDK server around a session manager.
type Server struct {
	server       *sdk.Server
	sessions     *session.Manager
	scenarios    scenario.Library
	toolLimiters ratelimit.ToolLimiters
	audit        *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "agentsim")
	Version string // Server version

	Sessions  *session.Manager
	Scenarios scenario.Library

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with the simulator tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Sessions == nil || cfg.Scenarios == nil {
		return nil, errors.New("mcp server needs a session manager and a scenario library")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		sessions:     cfg.Sessions,
		scenarios:    cfg.Scenarios,
		toolLimiters: ratelimit.NewToolLimiters(),
		logger:       logger,
	}
	if cfg.AuditDir != "" {
		s.audit = NewAuditLogger(cfg.AuditDir, logger)
	}

	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until the client disconnects, the context is
// cancelled or the process receives an interrupt.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.Close()
	return err
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.audit.Close()
}
