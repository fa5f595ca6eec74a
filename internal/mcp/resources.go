package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
)

const (
	stateResourceURI     = "agentsim://game/state"
	scenariosResourceURI = "agentsim://scenarios"
)

func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         stateResourceURI,
		Name:        "game-state",
		Description: "Snapshot of the game in progress",
		MIMEType:    "application/json",
	}, s.handleStateResource)

	s.server.AddResource(&sdk.Resource{
		URI:         scenariosResourceURI,
		Name:        "scenarios",
		Description: "Every scenario in the library",
		MIMEType:    "application/json",
	}, s.handleScenariosResource)
}

func (s *Server) handleStateResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	st, ok := s.sessions.Snapshot()
	if !ok {
		return nil, engine.ErrNoActiveGame
	}
	return jsonResource(stateResourceURI, st)
}

func (s *Server) handleScenariosResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	list, err := s.scenarios.All(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(scenariosResourceURI, list)
}

func jsonResource(uri string, v any) (*sdk.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
