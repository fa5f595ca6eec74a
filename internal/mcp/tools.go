package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/ratelimit"
)

// Tool inputs. Outputs are returned as untyped values so the SDK does not
// infer an output schema from the game types.

// NoInput is the input for tools without parameters.
type NoInput struct{}

// DecideInput is the input for sim_decide. Either Option carries a full
// decision option, or ScenarioID and OptionID name one from the library.
type DecideInput struct {
	Option     map[string]any `json:"option,omitempty" jsonschema:"Full decision option as returned by sim_decisions"`
	ScenarioID string         `json:"scenario_id,omitempty" jsonschema:"Library scenario id, used with option_id"`
	OptionID   string         `json:"option_id,omitempty" jsonschema:"Option id within the scenario"`
}

// AdvanceInput is the input for sim_advance.
type AdvanceInput struct {
	Weeks *int `json:"weeks,omitempty" jsonschema:"Weeks to advance (default 1)"`
}

// ScenariosInput is the input for sim_scenarios.
type ScenariosInput struct {
	Week *int `json:"week,omitempty" jsonschema:"Only scenarios available by this week"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_new_game",
		Description: "Start a new simulation, replacing any game in progress. Returns the initial game state.",
	}, s.handleNewGame)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_state",
		Description: "Return the current game state: budget, time, resources, capability maturity, reputation and event log.",
	}, s.handleState)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_decisions",
		Description: "List the decisions available this week, each with its options and their costs.",
	}, s.handleDecisions)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_decide",
		Description: "Apply one decision option. Pass the option object from sim_decisions, or scenario_id and option_id for a library scenario.",
	}, s.handleDecide)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_advance",
		Description: "Advance the game clock, resolving delayed impacts that come due.",
	}, s.handleAdvance)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_launch",
		Description: "Launch the platform to production. Missing capabilities schedule production incidents.",
	}, s.handleLaunch)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_end",
		Description: "End the game and return the final report.",
	}, s.handleEnd)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_scenarios",
		Description: "List scenarios in the library, optionally only those available by a given week.",
	}, s.handleScenarios)
}

func (s *Server) handleNewGame(ctx context.Context, req *sdk.CallToolRequest, _ NoInput) (_ *sdk.CallToolResult, _ any, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("sim_new_game", start, retErr, nil) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sim_new_game"); err != nil {
		return nil, nil, err
	}

	st, err := s.sessions.Start(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start game: %w", err)
	}
	s.logger.Info("game started", "session", st.SessionID)
	return nil, map[string]any{"game_state": st}, nil
}

func (s *Server) handleState(ctx context.Context, req *sdk.CallToolRequest, _ NoInput) (_ *sdk.CallToolResult, _ any, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("sim_state", start, retErr, nil) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sim_state"); err != nil {
		return nil, nil, err
	}

	st, ok := s.sessions.Snapshot()
	if !ok {
		return nil, nil, engine.ErrNoActiveGame
	}
	return nil, map[string]any{"game_state": st}, nil
}

func (s *Server) handleDecisions(ctx context.Context, req *sdk.CallToolRequest, _ NoInput) (_ *sdk.CallToolResult, _ any, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("sim_decisions", start, retErr, nil) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sim_decisions"); err != nil {
		return nil, nil, err
	}

	decisions, err := s.sessions.AvailableDecisions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"decisions": decisions, "count": len(decisions)}, nil
}

func (s *Server) handleDecide(ctx context.Context, req *sdk.CallToolRequest, args DecideInput) (_ *sdk.CallToolResult, _ any, retErr error) {
	start := time.Now()
	params := map[string]any{}
	if args.Option != nil {
		params["option"] = true
	}
	if args.ScenarioID != "" {
		params["scenario_id"] = args.ScenarioID
	}
	if args.OptionID != "" {
		params["option_id"] = args.OptionID
	}
	defer func() { s.auditTool("sim_decide", start, retErr, sanitizeToolParams(params)) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sim_decide"); err != nil {
		return nil, nil, err
	}

	var (
		res *engine.DecisionResult
		err error
	)
	switch {
	case args.Option != nil:
		raw, merr := json.Marshal(args.Option)
		if merr != nil {
			return nil, nil, fmt.Errorf("encode option: %w", merr)
		}
		res, err = s.sessions.ApplyDecisionJSON(ctx, raw)
	case args.ScenarioID != "" && args.OptionID != "":
		opt, lerr := s.lookupOption(ctx, args.ScenarioID, args.OptionID)
		if lerr != nil {
			return nil, nil, lerr
		}
		res, err = s.sessions.ApplyDecision(ctx, opt)
	default:
		return nil, nil, &models.ValidationError{Field: "option", Reason: "pass option, or scenario_id with option_id"}
	}
	if err != nil {
		return nil, nil, err
	}
	return nil, res, nil
}

func (s *Server) lookupOption(ctx context.Context, scenarioID, optionID string) (models.DecisionOption, error) {
	d, err := s.scenarios.Get(ctx, scenarioID)
	if err != nil {
		return models.DecisionOption{}, fmt.Errorf("scenario %q: %w", scenarioID, err)
	}
	for _, o := range d.Options {
		if o.ID == optionID {
			return o, nil
		}
	}
	return models.DecisionOption{}, &models.ValidationError{
		Field:  "option_id",
		Reason: fmt.Sprintf("scenario %q has no option %q", scenarioID, optionID),
	}
}

func (s *Server) handleAdvance(ctx context.Context, req *sdk.CallToolRequest, args AdvanceInput) (_ *sdk.CallToolResult, _ any, retErr error) {
	start := time.Now()
	weeks := 1
	if args.Weeks != nil {
		weeks = *args.Weeks
	}
	defer func() {
		s.auditTool("sim_advance", start, retErr, sanitizeToolParams(map[string]any{"weeks": weeks}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sim_advance"); err != nil {
		return nil, nil, err
	}

	st, err := s.sessions.AdvanceTime(weeks)
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"game_state": st}, nil
}

func (s *Server) handleLaunch(ctx context.Context, req *sdk.CallToolRequest, _ NoInput) (_ *sdk.CallToolResult, _ any, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("sim_launch", start, retErr, nil) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sim_launch"); err != nil {
		return nil, nil, err
	}

	res, err := s.sessions.Launch(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, res, nil
}

func (s *Server) handleEnd(ctx context.Context, req *sdk.CallToolRequest, _ NoInput) (_ *sdk.CallToolResult, _ any, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("sim_end", start, retErr, nil) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sim_end"); err != nil {
		return nil, nil, err
	}

	res, err := s.sessions.End(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, res, nil
}

func (s *Server) handleScenarios(ctx context.Context, req *sdk.CallToolRequest, args ScenariosInput) (_ *sdk.CallToolResult, _ any, retErr error) {
	start := time.Now()
	params := map[string]any{}
	if args.Week != nil {
		params["week"] = *args.Week
	}
	defer func() { s.auditTool("sim_scenarios", start, retErr, sanitizeToolParams(params)) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sim_scenarios"); err != nil {
		return nil, nil, err
	}

	var (
		list []models.Decision
		err  error
	)
	if args.Week != nil {
		list, err = s.scenarios.ForWeek(ctx, *args.Week)
	} else {
		list, err = s.scenarios.All(ctx)
	}
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"scenarios": list, "count": len(list)}, nil
}
