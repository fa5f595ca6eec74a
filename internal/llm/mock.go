package llm

import (
	"context"
	"sync"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// MockGenerator implements Generator for testing purposes.
// It allows configuring responses per operation, simulating errors or
// blocking until the context is done, and tracks calls for verification.
type MockGenerator struct {
	mu sync.Mutex

	// Configured responses
	decisions []models.Decision
	readiness *models.ReadinessAnalysis
	report    *models.FinalReport
	extracted []models.Decision
	err       error
	block     bool
	available bool

	// Call tracking
	DecisionCalls  []*models.GameState
	ReadinessCalls []models.MaturityVector
	ReportCalls    []*models.GameState
	ExtractCalls   []string
}

// NewMockGenerator creates a new MockGenerator with default settings.
// By default, it is available and returns empty results.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{available: true}
}

// WithDecisions configures the result returned by GenerateDecisions.
func (m *MockGenerator) WithDecisions(d []models.Decision) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = d
	return m
}

// WithReadiness configures the result returned by AnalyzeReadiness.
func (m *MockGenerator) WithReadiness(r *models.ReadinessAnalysis) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readiness = r
	return m
}

// WithReport configures the result returned by GenerateReport.
func (m *MockGenerator) WithReport(r *models.FinalReport) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.report = r
	return m
}

// WithExtracted configures the result returned by ExtractScenarios.
func (m *MockGenerator) WithExtracted(d []models.Decision) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracted = d
	return m
}

// WithError configures the error returned by all methods.
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithBlock makes every method wait for ctx to be done and return its error.
func (m *MockGenerator) WithBlock() *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = true
	return m
}

// WithAvailable configures whether Available() returns true or false.
func (m *MockGenerator) WithAvailable(available bool) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// wait returns the configured failure for a call, blocking first if asked.
// It must be called without m.mu held.
func (m *MockGenerator) wait(ctx context.Context) error {
	m.mu.Lock()
	block, err := m.block, m.err
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// GenerateDecisions implements Generator.GenerateDecisions.
func (m *MockGenerator) GenerateDecisions(ctx context.Context, state *models.GameState) ([]models.Decision, error) {
	m.mu.Lock()
	m.DecisionCalls = append(m.DecisionCalls, state)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Decision, len(m.decisions))
	for i, d := range m.decisions {
		out[i] = d.Clone()
	}
	return out, nil
}

// AnalyzeReadiness implements Generator.AnalyzeReadiness.
func (m *MockGenerator) AnalyzeReadiness(ctx context.Context, mv models.MaturityVector) (*models.ReadinessAnalysis, error) {
	m.mu.Lock()
	m.ReadinessCalls = append(m.ReadinessCalls, mv)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readiness != nil {
		r := *m.readiness
		return &r, nil
	}
	return &models.ReadinessAnalysis{RiskLevel: models.RiskLow, ReadyForProduction: true}, nil
}

// GenerateReport implements Generator.GenerateReport.
func (m *MockGenerator) GenerateReport(ctx context.Context, state *models.GameState) (*models.FinalReport, error) {
	m.mu.Lock()
	m.ReportCalls = append(m.ReportCalls, state)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.report != nil {
		r := *m.report
		return &r, nil
	}
	return &models.FinalReport{Grade: "A", Summary: "mock"}, nil
}

// ExtractScenarios implements Generator.ExtractScenarios.
func (m *MockGenerator) ExtractScenarios(ctx context.Context, document string) ([]models.Decision, error) {
	m.mu.Lock()
	m.ExtractCalls = append(m.ExtractCalls, document)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Decision, len(m.extracted))
	for i, d := range m.extracted {
		out[i] = d.Clone()
	}
	return out, nil
}

// Available implements Generator.Available.
func (m *MockGenerator) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Reset clears all call tracking and resets configured responses.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = nil
	m.readiness = nil
	m.report = nil
	m.extracted = nil
	m.err = nil
	m.block = false
	m.available = true
	m.DecisionCalls = nil
	m.ReadinessCalls = nil
	m.ReportCalls = nil
	m.ExtractCalls = nil
}

// DecisionCallCount returns the number of times GenerateDecisions was called.
func (m *MockGenerator) DecisionCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DecisionCalls)
}

// ReadinessCallCount returns the number of times AnalyzeReadiness was called.
func (m *MockGenerator) ReadinessCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ReadinessCalls)
}

// ReportCallCount returns the number of times GenerateReport was called.
func (m *MockGenerator) ReportCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ReportCalls)
}

// ScriptedCompleter is a Completer that returns canned replies in order.
type ScriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	Prompts []string
}

// NewScriptedCompleter returns a completer that yields replies one by one.
// Once exhausted it repeats the last reply.
func NewScriptedCompleter(replies ...string) *ScriptedCompleter {
	return &ScriptedCompleter{replies: replies}
}

// WithError makes every Complete call fail with err.
func (s *ScriptedCompleter) WithError(err error) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Complete implements Completer.
func (s *ScriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

// Available implements Completer.
func (s *ScriptedCompleter) Available() bool { return true }
