package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// ModelGenerator implements Generator on top of any Completer: it builds
// the prompt, sends it, and validates the reply.
type ModelGenerator struct {
	name      string
	completer Completer
}

// NewModelGenerator wraps c. name is used in error messages.
func NewModelGenerator(name string, c Completer) *ModelGenerator {
	return &ModelGenerator{name: name, completer: c}
}

// Name returns the backend name.
func (g *ModelGenerator) Name() string {
	return g.name
}

// Available reports whether the underlying completer is usable.
func (g *ModelGenerator) Available() bool {
	return g.completer != nil && g.completer.Available()
}

// GenerateDecisions implements Generator.
func (g *ModelGenerator) GenerateDecisions(ctx context.Context, state *models.GameState) ([]models.Decision, error) {
	if !g.Available() {
		return nil, fmt.Errorf("%s generator not available", g.name)
	}
	response, err := g.completer.Complete(ctx, DecisionsPrompt(state))
	if err != nil {
		return nil, fmt.Errorf("generating decisions: %w", err)
	}
	decisions, err := ParseDecisionsResponse(response)
	if err != nil {
		return nil, fmt.Errorf("parsing decisions response: %w", err)
	}
	return decisions, nil
}

// AnalyzeReadiness implements Generator.
func (g *ModelGenerator) AnalyzeReadiness(ctx context.Context, m models.MaturityVector) (*models.ReadinessAnalysis, error) {
	if !g.Available() {
		return nil, fmt.Errorf("%s generator not available", g.name)
	}
	response, err := g.completer.Complete(ctx, ReadinessPrompt(m))
	if err != nil {
		return nil, fmt.Errorf("analyzing readiness: %w", err)
	}
	analysis, err := ParseReadinessResponse(response)
	if err != nil {
		return nil, fmt.Errorf("parsing readiness response: %w", err)
	}
	return analysis, nil
}

// GenerateReport implements Generator.
func (g *ModelGenerator) GenerateReport(ctx context.Context, state *models.GameState) (*models.FinalReport, error) {
	if !g.Available() {
		return nil, fmt.Errorf("%s generator not available", g.name)
	}
	response, err := g.completer.Complete(ctx, ReportPrompt(state))
	if err != nil {
		return nil, fmt.Errorf("generating report: %w", err)
	}
	report, err := ParseReportResponse(response)
	if err != nil {
		return nil, fmt.Errorf("parsing report response: %w", err)
	}
	return report, nil
}

// ExtractScenarios implements Generator. Documents shorter than
// MinDocumentChars are rejected without calling the model.
func (g *ModelGenerator) ExtractScenarios(ctx context.Context, document string) ([]models.Decision, error) {
	if len(strings.TrimSpace(document)) < MinDocumentChars {
		return nil, fmt.Errorf("document appears to be empty or contains insufficient text")
	}
	if !g.Available() {
		return nil, fmt.Errorf("%s generator not available", g.name)
	}
	response, err := g.completer.Complete(ctx, ExtractionPrompt(document))
	if err != nil {
		return nil, fmt.Errorf("extracting scenarios: %w", err)
	}
	decisions, err := ParseScenariosResponse(response)
	if err != nil {
		return nil, fmt.Errorf("parsing scenarios response: %w", err)
	}
	return decisions, nil
}

// NewGenerator builds the generator named by config.Provider. Unknown
// providers are an error; "fallback" or an empty provider yields the
// deterministic FallbackGenerator.
func NewGenerator(config ClientConfig) (Generator, error) {
	switch strings.ToLower(config.Provider) {
	case "", ProviderFallback:
		return NewFallbackGenerator(), nil
	case ProviderAnthropic:
		return NewModelGenerator(ProviderAnthropic, NewAnthropicClient(config)), nil
	case ProviderOpenAI:
		return NewModelGenerator(ProviderOpenAI, NewOpenAIClient(config)), nil
	case ProviderOllama:
		return NewModelGenerator(ProviderOllama, NewOllamaClient(config)), nil
	case ProviderGemini:
		return NewModelGenerator(ProviderGemini, NewGeminiClient(config)), nil
	case ProviderCLI:
		return NewModelGenerator(ProviderCLI, NewCLIClient(CLIConfig{
			CLIPath: config.CLIPath,
			Timeout: config.Timeout,
		})), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
}
