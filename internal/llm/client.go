// Package llm provides the content generator used by the simulation: decision
// scenarios, production-readiness analyses, final reports and scenario
// extraction. It supports Anthropic, OpenAI-compatible (including Ollama),
// Gemini and local CLI backends, plus a deterministic fallback.
package llm

import (
	"context"
	"time"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// Provider names accepted in ClientConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderCLI       = "cli"
	ProviderFallback  = "fallback"
)

// ClientConfig configures a generator backend.
type ClientConfig struct {
	// Provider identifies the backend: "anthropic", "openai", "ollama", "gemini", "cli", "fallback"
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider (not used for cli, fallback, or ollama).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint. Used for ollama or custom OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to use for requests.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout is the maximum duration to wait for a response.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxTokens caps the length of a completion.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// CLIPath is the executable used by the cli provider.
	CLIPath string `json:"cli_path,omitempty" yaml:"cli_path,omitempty"`
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider:  ProviderFallback,
		Timeout:   30 * time.Second,
		MaxTokens: 3072,
	}
}

// Generator produces the simulation's narrative content. Every method may
// fail; callers substitute deterministic fallbacks on any error.
type Generator interface {
	// GenerateDecisions proposes decisions suited to the current state.
	GenerateDecisions(ctx context.Context, state *models.GameState) ([]models.Decision, error)

	// AnalyzeReadiness assesses whether a maturity snapshot is ready for production.
	AnalyzeReadiness(ctx context.Context, m models.MaturityVector) (*models.ReadinessAnalysis, error)

	// GenerateReport produces the end-of-game report.
	GenerateReport(ctx context.Context, state *models.GameState) (*models.FinalReport, error)

	// ExtractScenarios turns a plain-text document into library decisions.
	ExtractScenarios(ctx context.Context, document string) ([]models.Decision, error)

	// Available returns true if the generator is configured and ready to handle requests.
	Available() bool
}

// Completer sends a single prompt to a model and returns the raw text reply.
// The HTTP and CLI backends implement it; ModelGenerator turns a Completer
// into a Generator.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Available() bool
}

// Closer is an optional interface for generators that hold resources requiring cleanup.
type Closer interface {
	Close() error
}
