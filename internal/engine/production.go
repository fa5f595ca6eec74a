package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/llm"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// LaunchResult is returned by LaunchToProduction.
type LaunchResult struct {
	Success          bool                      `json:"success"`
	Message          string                    `json:"message,omitempty"`
	Analysis         *models.ReadinessAnalysis `json:"analysis,omitempty"`
	ProductionIssues []string                  `json:"production_issues"`
	Fallout          []models.PendingImpact    `json:"fallout"`
}

// EndResult is returned by EndGame.
type EndResult struct {
	State  *models.GameState   `json:"game_state"`
	Report *models.FinalReport `json:"report"`
}

// LaunchToProduction moves the platform into production. The readiness
// analysis decides the risk level; every capability below the production
// threshold schedules fallout one to four weeks out. Launching twice is an
// unsuccessful result with no state change.
func (g *Game) LaunchToProduction(ctx context.Context) (*LaunchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.state.GameOver {
		return nil, ErrGameOver
	}
	if g.state.IsProduction {
		return &LaunchResult{
			Success:          false,
			Message:          "Already in production",
			ProductionIssues: append([]string{}, g.state.ProductionIssues...),
			Fallout:          []models.PendingImpact{},
		}, nil
	}

	maturity := g.state.Maturity
	res := generate(ctx, g, "analyze_readiness",
		func(ctx context.Context, gen llm.Generator) (*models.ReadinessAnalysis, error) {
			return gen.AnalyzeReadiness(ctx, maturity)
		},
		func() *models.ReadinessAnalysis { return llm.FallbackReadiness(maturity) },
	)
	if res.Value == nil {
		res = Generated[*models.ReadinessAnalysis]{
			Value:  llm.FallbackReadiness(maturity),
			Source: models.SourceFallback,
			Reason: "empty analysis",
		}
	}
	analysis := new(models.ReadinessAnalysis)
	*analysis = *res.Value
	analysis.Source = res.Source
	if !analysis.RiskLevel.Valid() {
		analysis.RiskLevel = llm.FallbackReadiness(maturity).RiskLevel
	}

	week := g.state.CurrentWeek
	g.state.IsProduction = true
	g.state.ProductionWeek = &week
	g.state.ProductionIssues = append([]string{}, analysis.PotentialIssues...)

	g.appendEvent(models.GameEvent{
		Week:        week,
		Title:       ProductionLaunch,
		Description: fmt.Sprintf(launchDescription, strings.ToUpper(string(analysis.RiskLevel))),
		Impact:      models.Impact{Production: true, RiskLevel: analysis.RiskLevel},
	})

	span := constants.FalloutMaxWeeks - constants.FalloutMinWeeks + 1
	scheduled := []models.PendingImpact{}
	for _, c := range maturity.Below(constants.ProductionReadyThreshold) {
		at := week + constants.FalloutMinWeeks + g.engine.rng.Intn(span)
		p := falloutFor(c, maturity.Get(c), at)
		g.schedule(p)
		scheduled = append(scheduled, p.Clone())
	}

	g.engine.logger.Info("launched to production", "session", g.state.SessionID, "week", week,
		"risk", analysis.RiskLevel, "ready", analysis.ReadyForProduction,
		"fallout", len(scheduled), "source", res.Source)

	return &LaunchResult{
		Success:          true,
		Message:          "Launched to production",
		Analysis:         analysis,
		ProductionIssues: append([]string{}, g.state.ProductionIssues...),
		Fallout:          scheduled,
	}, nil
}

// EndGame finishes the game and produces the final report. Production
// fallout that has not landed yet is settled first so the report sees it.
// It may be called again; each call regenerates the report for the same
// final state.
func (g *Game) EndGame(ctx context.Context) (*EndResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !g.state.GameOver {
		g.settleFallout()
		g.state.GameOver = true
		g.engine.logger.Info("game over", "session", g.state.SessionID,
			"week", g.state.CurrentWeek, "budget", g.state.Budget, "average", g.state.Maturity.Average())
	}

	snapshot := g.State()
	res := generate(ctx, g, "generate_report",
		func(ctx context.Context, gen llm.Generator) (*models.FinalReport, error) {
			return gen.GenerateReport(ctx, snapshot)
		},
		func() *models.FinalReport { return llm.FallbackReport(snapshot) },
	)
	if res.Value == nil {
		res = Generated[*models.FinalReport]{
			Value:  llm.FallbackReport(snapshot),
			Source: models.SourceFallback,
			Reason: "empty report",
		}
	}
	report := new(models.FinalReport)
	*report = *res.Value
	report.Source = res.Source
	return &EndResult{State: g.State(), Report: report}, nil
}
