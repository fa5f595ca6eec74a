package llm

import (
	"context"
	"errors"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// ErrExtractionUnavailable is returned when scenario extraction is requested
// without a model backend.
var ErrExtractionUnavailable = errors.New("scenario extraction requires a model backend")

// FallbackGenerator implements Generator with fixed, locally computed
// content. It is used when no model provider is configured.
type FallbackGenerator struct{}

// NewFallbackGenerator creates a new FallbackGenerator.
func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{}
}

// GenerateDecisions returns FallbackDecisions.
func (g *FallbackGenerator) GenerateDecisions(ctx context.Context, state *models.GameState) ([]models.Decision, error) {
	return FallbackDecisions(), nil
}

// AnalyzeReadiness returns FallbackReadiness.
func (g *FallbackGenerator) AnalyzeReadiness(ctx context.Context, m models.MaturityVector) (*models.ReadinessAnalysis, error) {
	return FallbackReadiness(m), nil
}

// GenerateReport returns FallbackReport.
func (g *FallbackGenerator) GenerateReport(ctx context.Context, state *models.GameState) (*models.FinalReport, error) {
	return FallbackReport(state), nil
}

// ExtractScenarios always fails: there is no local way to read a document.
func (g *FallbackGenerator) ExtractScenarios(ctx context.Context, document string) ([]models.Decision, error) {
	return nil, ErrExtractionUnavailable
}

// Available returns false because this is a fallback generator.
// This signals to selection logic that a model provider should be preferred.
func (g *FallbackGenerator) Available() bool {
	return false
}

// FallbackDecisions is the single decision offered when generation fails.
func FallbackDecisions() []models.Decision {
	return []models.Decision{
		{
			ID:          "invest_dev_tools",
			Title:       "Invest in Agent Development Tools",
			Description: "Invest in modern development frameworks and tools for building agents",
			Category:    models.CategoryDevelopment,
			Options: []models.DecisionOption{
				{
					ID:                "basic_tools",
					Text:              "Basic open-source tools",
					Cost:              20000,
					TimeWeeks:         2,
					ResourcesRequired: 1,
					MaturityImpact:    models.MaturityDelta{models.AgentDevelopment: 10},
					ImmediateImpact:   true,
					Consequences:      "Quick start but limited capabilities",
				},
				{
					ID:                "enterprise_tools",
					Text:              "Enterprise-grade platform",
					Cost:              100000,
					TimeWeeks:         6,
					ResourcesRequired: 3,
					MaturityImpact: models.MaturityDelta{
						models.AgentDevelopment: 25,
						models.AgentOperations:  10,
						models.DataPlatforms:    5,
						models.Security:         5,
						models.Governance:       5,
					},
					ImmediateImpact:    false,
					DelayedImpactWeeks: 4,
					Consequences:       "Comprehensive solution with better long-term benefits",
				},
			},
		},
	}
}

// FallbackReadiness computes a readiness analysis from thresholds alone:
// ready when the average is at least 60 and nothing is below 40; risk is
// banded at averages of 70 and 50.
func FallbackReadiness(m models.MaturityVector) *models.ReadinessAnalysis {
	avg := m.Average()
	weak := m.Below(constants.ProductionReadyThreshold)
	critical := m.Below(constants.MinimumAcceptableThreshold)

	risk := models.RiskHigh
	switch {
	case avg >= constants.LowRiskAverage:
		risk = models.RiskLow
	case avg >= constants.MediumRiskAverage:
		risk = models.RiskMedium
	}

	if weak == nil {
		weak = []models.Capability{}
	}
	if critical == nil {
		critical = []models.Capability{}
	}

	return &models.ReadinessAnalysis{
		ReadyForProduction: avg >= constants.ProductionReadyThreshold && len(critical) == 0,
		RiskLevel:          risk,
		WeakAreas:          weak,
		CriticalGaps:       critical,
		PotentialIssues:    []string{"System may experience performance issues"},
		Recommendations:    []string{"Focus on improving weak areas before production launch"},
	}
}

// FallbackReport scores the game by its average maturity.
func FallbackReport(state *models.GameState) *models.FinalReport {
	avg := state.Maturity.Average()
	grade := "C"
	if avg >= constants.GradeBAverage {
		grade = "B"
	}

	return &models.FinalReport{
		OverallScore: int(avg),
		Grade:        grade,
		Summary:      "Simulation completed",
		Strengths:    []string{"Completed the simulation"},
		Weaknesses:   []string{"Some areas need improvement"},
		KeyLearnings: []string{"Multi-agent platforms require balanced investment"},
		PrescriptiveGuidance: models.PrescriptiveGuidance{
			ShortTerm:  []string{"Address critical gaps"},
			MediumTerm: []string{"Build operational maturity"},
			LongTerm:   []string{"Establish governance framework"},
		},
		BestPractices:   []string{"Invest in all capabilities equally"},
		Recommendations: []string{"Continue improving maturity levels"},
	}
}
