package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/llm"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// scriptedRNG replays fixed values. Once exhausted, Float64 returns 0.99
// (no random event at the default probability) and Intn returns 0.
type scriptedRNG struct {
	floats []float64
	ints   []int
}

func (r *scriptedRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRNG) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0] % n
	r.ints = r.ints[1:]
	return v
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.GameEvent
}

func (s *recordingSink) Publish(sessionID string, ev models.GameEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

type staticScenarios []models.Decision

func (s staticScenarios) ForWeek(ctx context.Context, week int) ([]models.Decision, error) {
	var out []models.Decision
	for _, d := range s {
		if d.WeekAvailable <= week {
			out = append(out, d)
		}
	}
	return out, nil
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.RNG == nil {
		opts.RNG = &scriptedRNG{}
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "test-session" }
	}
	e, err := New(DefaultConfig(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func devOption() models.DecisionOption {
	return models.DecisionOption{
		ID:                "basic_tools",
		Text:              "Use basic open-source tools",
		Cost:              20000,
		TimeWeeks:         2,
		ResourcesRequired: 2,
		MaturityImpact:    models.MaturityDelta{models.AgentDevelopment: 10},
		ImmediateImpact:   true,
	}
}

func TestNewGame(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()
	s := g.State()

	if s.Budget != 1000000 || s.TimeRemainingWeeks != 52 || s.Resources != 10 {
		t.Errorf("resources = %d/%d/%d", s.Budget, s.TimeRemainingWeeks, s.Resources)
	}
	if s.CurrentWeek != 0 || s.Reputation != 100 {
		t.Errorf("week = %d, reputation = %d", s.CurrentWeek, s.Reputation)
	}
	if s.Maturity != (models.MaturityVector{}) {
		t.Errorf("maturity = %v", s.Maturity)
	}
	if len(s.Events) != 1 || s.Events[0].Title != WelcomeTitle || s.Events[0].Week != 0 {
		t.Errorf("events = %+v", s.Events)
	}
	if len(s.DecisionsMade) != 0 || len(s.Pending) != 0 || s.IsProduction || s.GameOver {
		t.Errorf("unexpected initial state %+v", s)
	}
	if s.ProductionWeek != nil {
		t.Errorf("production week = %v", *s.ProductionWeek)
	}
	if g.ID() != "test-session" {
		t.Errorf("ID = %q", g.ID())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative resources", func(c *Config) { c.InitialResources = -1 }},
		{"negative weeks", func(c *Config) { c.InitialTimeWeeks = -1 }},
		{"probability above one", func(c *Config) { c.RandomEventProbability = 1.5 }},
		{"negative timeout", func(c *Config) { c.GeneratorTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, Options{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyDecision_Immediate(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()

	res, err := g.ApplyDecision(context.Background(), devOption())
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if !res.Success || res.Message != "Decision processed successfully" {
		t.Errorf("result = %+v", res)
	}

	s := res.State
	if s.Budget != 980000 {
		t.Errorf("budget = %d, want 980000", s.Budget)
	}
	if s.CurrentWeek != 2 || s.TimeRemainingWeeks != 50 {
		t.Errorf("week = %d, remaining = %d", s.CurrentWeek, s.TimeRemainingWeeks)
	}
	if s.Maturity.Get(models.AgentDevelopment) != 10 {
		t.Errorf("agent_development = %d", s.Maturity.Get(models.AgentDevelopment))
	}
	if s.Resources != 10 {
		t.Errorf("resources changed to %d", s.Resources)
	}
	if len(s.DecisionsMade) != 1 {
		t.Fatalf("decisions = %+v", s.DecisionsMade)
	}
	rec := s.DecisionsMade[0]
	if rec.Week != 2 || rec.OptionID != "basic_tools" || rec.Cost != 20000 {
		t.Errorf("record = %+v", rec)
	}
}

func TestApplyDecision_InsufficientResources(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()
	before := g.State()

	opt := devOption()
	opt.ResourcesRequired = 11
	res, err := g.ApplyDecision(context.Background(), opt)
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if res.Success || res.Message != "Insufficient resources" {
		t.Errorf("result = %+v", res)
	}
	if !reflect.DeepEqual(before, g.State()) {
		t.Errorf("state changed:\nbefore %+v\nafter  %+v", before, g.State())
	}
}

func TestApplyDecision_InvalidOption(t *testing.T) {
	tests := []struct {
		name  string
		opt   func() models.DecisionOption
		field string
	}{
		{"negative cost", func() models.DecisionOption { o := devOption(); o.Cost = -1; return o }, "option.cost"},
		{"negative weeks", func() models.DecisionOption { o := devOption(); o.TimeWeeks = -2; return o }, "option.time_weeks"},
		{"missing id", func() models.DecisionOption { o := devOption(); o.ID = ""; return o }, "option.id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestEngine(t, Options{}).NewGame()
			before := g.State()

			_, err := g.ApplyDecision(context.Background(), tt.opt())
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
			if !reflect.DeepEqual(before, g.State()) {
				t.Error("state changed after invalid option")
			}
		})
	}
}

func TestApplyDecisionJSON(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()

	_, err := g.ApplyDecisionJSON(context.Background(), []byte(`{"id":"x","text":"y","cost":100}`))
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing fields, got %v", err)
	}

	raw := `{"id":"obs","text":"Add tracing","cost":5000,"time_weeks":1,"resources_required":1,"maturity_impact":{"agent_operations":7}}`
	res, err := g.ApplyDecisionJSON(context.Background(), []byte(raw))
	if err != nil {
		t.Fatalf("ApplyDecisionJSON: %v", err)
	}
	if res.State.Maturity.Get(models.AgentOperations) != 7 {
		t.Errorf("immediate_impact should default to true: %v", res.State.Maturity)
	}
}

func TestApplyDecision_Delayed(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()

	opt := models.DecisionOption{
		ID:                 "security_program",
		Text:               "Security program",
		Cost:               50000,
		TimeWeeks:          1,
		ResourcesRequired:  3,
		MaturityImpact:     models.MaturityDelta{models.Security: 15},
		ImmediateImpact:    false,
		DelayedImpactWeeks: 3,
	}
	res, err := g.ApplyDecision(context.Background(), opt)
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if got := res.State.Maturity.Get(models.Security); got != 0 {
		t.Errorf("security applied early: %d", got)
	}
	if len(res.State.Pending) != 1 || res.State.Pending[0].Week != 3 {
		t.Fatalf("pending = %+v", res.State.Pending)
	}

	if err := g.AdvanceTime(2); err != nil {
		t.Fatalf("AdvanceTime: %v", err)
	}
	s := g.State()
	if s.Maturity.Get(models.Security) != 15 {
		t.Errorf("security = %d, want 15", s.Maturity.Get(models.Security))
	}
	if len(s.Pending) != 0 {
		t.Errorf("pending not drained: %+v", s.Pending)
	}
	last, _ := s.LastEvent()
	if last.Title != DelayedImpactTitle || last.Week != 3 {
		t.Errorf("last event = %+v", last)
	}
	if !strings.Contains(last.Description, "'Security program'") {
		t.Errorf("description = %q", last.Description)
	}

	if err := g.AdvanceTime(5); err != nil {
		t.Fatal(err)
	}
	if got := g.State().Maturity.Get(models.Security); got != 15 {
		t.Errorf("pending impact applied twice: security = %d", got)
	}
}

func TestApplyDecision_ZeroDelayRealisedNextWeek(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()

	opt := devOption()
	opt.ImmediateImpact = false
	opt.TimeWeeks = 0
	if _, err := g.ApplyDecision(context.Background(), opt); err != nil {
		t.Fatal(err)
	}
	if got := g.State().Maturity.Get(models.AgentDevelopment); got != 0 {
		t.Fatalf("applied without advancing: %d", got)
	}
	if err := g.AdvanceTime(1); err != nil {
		t.Fatal(err)
	}
	if got := g.State().Maturity.Get(models.AgentDevelopment); got != 10 {
		t.Errorf("agent_development = %d, want 10", got)
	}
}

func TestAdvanceTime(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()

	for _, n := range []int{0, 1, 7} {
		before := g.State()
		if err := g.AdvanceTime(n); err != nil {
			t.Fatalf("AdvanceTime(%d): %v", n, err)
		}
		after := g.State()
		if after.CurrentWeek != before.CurrentWeek+n {
			t.Errorf("AdvanceTime(%d): week %d -> %d", n, before.CurrentWeek, after.CurrentWeek)
		}
		if after.TimeRemainingWeeks != before.TimeRemainingWeeks-n {
			t.Errorf("AdvanceTime(%d): remaining %d -> %d", n, before.TimeRemainingWeeks, after.TimeRemainingWeeks)
		}
	}

	if err := g.AdvanceTime(-1); !errors.Is(err, ErrNegativeWeeks) {
		t.Errorf("AdvanceTime(-1) = %v, want ErrNegativeWeeks", err)
	}
}

func TestAdvanceTime_TimeCanGoNegative(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()
	if err := g.AdvanceTime(60); err != nil {
		t.Fatal(err)
	}
	if got := g.State().TimeRemainingWeeks; got != -8 {
		t.Errorf("remaining = %d, want -8", got)
	}
}

func TestRandomEvents(t *testing.T) {
	tests := []struct {
		name       string
		maturity   models.MaturityVector
		wantTitle  string
		wantBudget int
		wantTime   int
		wantOps    int
	}{
		{
			name:       "security audit wins over everything",
			maturity:   models.MaturityVector{10, 10, 10, 10, 10},
			wantTitle:  "Security Audit Required",
			wantBudget: 980000,
			wantTime:   51,
			wantOps:    10,
		},
		{
			name:       "data quality",
			maturity:   models.MaturityVector{10, 10, 30, 50, 10},
			wantTitle:  "Data Quality Issues",
			wantBudget: 1000000,
			wantTime:   51,
			wantOps:    5,
		},
		{
			name:       "compliance review",
			maturity:   models.MaturityVector{10, 10, 50, 50, 45},
			wantTitle:  "Compliance Review",
			wantBudget: 970000,
			wantTime:   49,
			wantOps:    10,
		},
		{
			name:       "no rule matches",
			maturity:   models.MaturityVector{80, 80, 80, 80, 80},
			wantBudget: 1000000,
			wantTime:   51,
			wantOps:    80,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, Options{RNG: &scriptedRNG{floats: []float64{0.05}}})
			g := e.NewGame()
			g.state.Maturity = tt.maturity

			if err := g.AdvanceTime(1); err != nil {
				t.Fatal(err)
			}
			s := g.State()
			if s.Budget != tt.wantBudget || s.TimeRemainingWeeks != tt.wantTime {
				t.Errorf("budget = %d, remaining = %d", s.Budget, s.TimeRemainingWeeks)
			}
			if got := s.Maturity.Get(models.AgentOperations); got != tt.wantOps {
				t.Errorf("agent_operations = %d, want %d", got, tt.wantOps)
			}

			if tt.wantTitle == "" {
				if len(s.Events) != 1 {
					t.Errorf("unexpected events %+v", s.Events)
				}
				return
			}
			if len(s.Events) != 2 {
				t.Fatalf("want exactly one random event, got %+v", s.Events)
			}
			if s.Events[1].Title != tt.wantTitle || s.Events[1].Week != 1 {
				t.Errorf("event = %+v", s.Events[1])
			}
		})
	}
}

func TestRandomEvents_ProbabilityGate(t *testing.T) {
	e := newTestEngine(t, Options{RNG: &scriptedRNG{floats: []float64{0.10, 0.5, 0.99}}})
	g := e.NewGame()
	if err := g.AdvanceTime(3); err != nil {
		t.Fatal(err)
	}
	if n := len(g.State().Events); n != 1 {
		t.Errorf("samples at or above the probability must not fire, got %d events", n)
	}
}

func TestRandomEvents_AtMostOnePerWeek(t *testing.T) {
	e := newTestEngine(t, Options{RNG: NewSeededRNG(7)})
	e.cfg.RandomEventProbability = 1
	g := e.NewGame()

	if err := g.AdvanceTime(10); err != nil {
		t.Fatal(err)
	}
	perWeek := map[int]int{}
	for _, ev := range g.State().Events[1:] {
		perWeek[ev.Week]++
	}
	for week := 1; week <= 10; week++ {
		if perWeek[week] != 1 {
			t.Errorf("week %d has %d random events", week, perWeek[week])
		}
	}
}

func TestLaunchToProduction_LowMaturity(t *testing.T) {
	e := newTestEngine(t, Options{RNG: &scriptedRNG{ints: []int{0, 1, 2, 3, 0}}})
	g := e.NewGame()
	g.state.Maturity = models.MaturityVector{30, 30, 30, 30, 30}

	res, err := g.LaunchToProduction(context.Background())
	if err != nil {
		t.Fatalf("LaunchToProduction: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Analysis.ReadyForProduction || res.Analysis.RiskLevel != models.RiskHigh {
		t.Errorf("analysis = %+v", res.Analysis)
	}
	if res.Analysis.Source != models.SourceFallback {
		t.Errorf("source = %q, want fallback", res.Analysis.Source)
	}
	if len(res.Fallout) != 5 {
		t.Fatalf("fallout = %+v", res.Fallout)
	}
	wantWeeks := []int{1, 2, 3, 4, 1}
	for i, f := range res.Fallout {
		if f.Severity != SeverityCritical || !strings.HasPrefix(f.Title, "Critical: ") {
			t.Errorf("fallout[%d] = %+v", i, f)
		}
		if f.Week != wantWeeks[i] {
			t.Errorf("fallout[%d].week = %d, want %d", i, f.Week, wantWeeks[i])
		}
	}

	s := g.State()
	if !s.IsProduction || s.ProductionWeek == nil || *s.ProductionWeek != 0 {
		t.Errorf("production flags = %v %v", s.IsProduction, s.ProductionWeek)
	}
	last, _ := s.LastEvent()
	if last.Title != ProductionLaunch || !strings.HasSuffix(last.Description, "Risk Level: HIGH") {
		t.Errorf("launch event = %+v", last)
	}
	if !last.Impact.Production || last.Impact.RiskLevel != models.RiskHigh {
		t.Errorf("launch impact = %+v", last.Impact)
	}

	if err := g.AdvanceTime(4); err != nil {
		t.Fatal(err)
	}
	s = g.State()
	if s.Budget != 1000000-435000 {
		t.Errorf("budget = %d, want %d", s.Budget, 1000000-435000)
	}
	if s.Reputation != 18 {
		t.Errorf("reputation = %d, want 18", s.Reputation)
	}
	if len(s.Pending) != 0 {
		t.Errorf("fallout left pending: %+v", s.Pending)
	}
}

func TestLaunchToProduction_MajorSeverity(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()
	g.state.Maturity = models.MaturityVector{80, 50, 80, 80, 80}

	res, err := g.LaunchToProduction(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Fallout) != 1 {
		t.Fatalf("fallout = %+v", res.Fallout)
	}
	f := res.Fallout[0]
	if f.Title != "Major: Operational Issues" || f.Severity != SeverityMajor {
		t.Errorf("fallout = %+v", f)
	}
}

func TestLaunchToProduction_Twice(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()
	if _, err := g.LaunchToProduction(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := g.State()

	res, err := g.LaunchToProduction(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || res.Message != "Already in production" {
		t.Errorf("second launch = %+v", res)
	}
	if !reflect.DeepEqual(before, g.State()) {
		t.Error("second launch changed state")
	}
}

func TestLaunchToProduction_GeneratorTimeout(t *testing.T) {
	mock := llm.NewMockGenerator().WithBlock()
	e := newTestEngine(t, Options{Generator: mock})
	e.cfg.GeneratorTimeout = 20 * time.Millisecond
	g := e.NewGame()
	g.state.Maturity = models.MaturityVector{80, 80, 80, 80, 80}

	res, err := g.LaunchToProduction(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Analysis.Source != models.SourceFallback {
		t.Errorf("source = %q, want fallback", res.Analysis.Source)
	}
	if !res.Analysis.ReadyForProduction || res.Analysis.RiskLevel != models.RiskLow {
		t.Errorf("analysis = %+v", res.Analysis)
	}
	if len(mock.ReadinessCalls) != 1 {
		t.Errorf("readiness calls = %d", len(mock.ReadinessCalls))
	}
}

func TestLaunchToProduction_UsesGenerator(t *testing.T) {
	mock := llm.NewMockGenerator().WithReadiness(&models.ReadinessAnalysis{
		ReadyForProduction: false,
		RiskLevel:          models.RiskCritical,
		PotentialIssues:    []string{"outages"},
	})
	g := newTestEngine(t, Options{Generator: mock}).NewGame()

	res, err := g.LaunchToProduction(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Analysis.Source != models.SourceGenerator || res.Analysis.RiskLevel != models.RiskCritical {
		t.Errorf("analysis = %+v", res.Analysis)
	}
	if !reflect.DeepEqual(res.ProductionIssues, []string{"outages"}) {
		t.Errorf("issues = %v", res.ProductionIssues)
	}
}

func TestEndGame(t *testing.T) {
	g := newTestEngine(t, Options{Generator: llm.NewMockGenerator().WithError(errors.New("boom"))}).NewGame()
	g.state.Maturity = models.MaturityVector{70, 70, 70, 70, 75}

	res, err := g.EndGame(context.Background())
	if err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	if !res.State.GameOver {
		t.Error("game not over")
	}
	if res.Report.Source != models.SourceFallback || res.Report.Grade != "B" || res.Report.OverallScore != 71 {
		t.Errorf("report = %+v", res.Report)
	}

	if _, err := g.ApplyDecision(context.Background(), devOption()); !errors.Is(err, ErrGameOver) {
		t.Errorf("ApplyDecision after end = %v", err)
	}
	if _, err := g.LaunchToProduction(context.Background()); !errors.Is(err, ErrGameOver) {
		t.Errorf("LaunchToProduction after end = %v", err)
	}
	before := g.State()
	if err := g.AdvanceTime(5); !errors.Is(err, ErrGameOver) {
		t.Errorf("AdvanceTime after end = %v, want ErrGameOver", err)
	}
	if !reflect.DeepEqual(before, g.State()) {
		t.Error("AdvanceTime after end changed state")
	}
	again, err := g.EndGame(context.Background())
	if err != nil || !again.State.GameOver {
		t.Errorf("second EndGame = %+v, %v", again, err)
	}
	if d, err := g.AvailableDecisions(context.Background()); err != nil || len(d) != 0 {
		t.Errorf("decisions after end = %v, %v", d, err)
	}
}

func TestEndGame_SettlesFallout(t *testing.T) {
	gen := llm.NewMockGenerator().WithError(errors.New("boom"))
	g := newTestEngine(t, Options{
		Generator: gen,
		RNG:       &scriptedRNG{ints: []int{0, 1, 2, 3, 0}},
	}).NewGame()
	g.state.Maturity = models.MaturityVector{}
	delayed := devOption()
	delayed.ImmediateImpact = false
	delayed.DelayedImpactWeeks = 10
	delayed.TimeWeeks = 0
	if _, err := g.ApplyDecision(context.Background(), delayed); err != nil {
		t.Fatal(err)
	}

	launch, err := g.LaunchToProduction(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res, err := g.EndGame(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	s := res.State
	var fallout []models.GameEvent
	for _, ev := range s.Events {
		if strings.HasPrefix(ev.Title, "Critical: ") {
			fallout = append(fallout, ev)
		}
	}
	if len(fallout) != len(launch.Fallout) || len(fallout) != 5 {
		t.Fatalf("fallout events = %d, want 5", len(fallout))
	}
	for i, ev := range fallout {
		if ev.Week != launch.Fallout[i].Week {
			t.Errorf("fallout[%d] at week %d, want scheduled week %d", i, ev.Week, launch.Fallout[i].Week)
		}
	}
	if want := 1000000 - 20000 - 435000; s.Budget != want {
		t.Errorf("budget = %d, want %d", s.Budget, want)
	}
	if s.Reputation != 18 {
		t.Errorf("reputation = %d, want 18", s.Reputation)
	}
	if len(s.Pending) != 1 || s.Pending[0].Source != models.PendingFromDecision {
		t.Errorf("pending = %+v, want only the delayed decision impact", s.Pending)
	}
	if len(gen.ReportCalls) != 1 || gen.ReportCalls[0].Budget != s.Budget {
		t.Errorf("report generator did not see the settled budget: %+v", gen.ReportCalls)
	}

	again, err := g.EndGame(context.Background())
	if err != nil || again.State.Budget != s.Budget || len(again.State.Events) != len(s.Events) {
		t.Errorf("second EndGame changed state: %+v, %v", again.State, err)
	}
}

func TestAdvanceTime_Limit(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()
	before := g.State()

	err := g.AdvanceTime(constants.MaxAdvanceWeeks + 1)
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Field != "weeks" {
		t.Fatalf("AdvanceTime over the limit = %v, want weeks ValidationError", err)
	}
	if !reflect.DeepEqual(before, g.State()) {
		t.Error("rejected advance changed state")
	}

	long := devOption()
	long.TimeWeeks = 2000000000
	if _, err := g.ApplyDecision(context.Background(), long); !errors.As(err, &ve) {
		t.Errorf("ApplyDecision with huge duration = %v, want ValidationError", err)
	}
	if err := g.AdvanceTime(constants.MaxAdvanceWeeks); err != nil {
		t.Errorf("AdvanceTime at the limit: %v", err)
	}
}

func TestAvailableDecisions(t *testing.T) {
	lib := staticScenarios{
		{ID: "invest_dev_tools", Title: "duplicate of fallback", Category: models.CategoryDevelopment},
		{ID: "observability", Title: "Observability", Category: models.CategoryOperations, WeekAvailable: 0},
		{ID: "data", Title: "Data", Category: models.CategoryData, WeekAvailable: 0},
		{ID: "late", Title: "Late", Category: models.CategorySecurity, WeekAvailable: 12},
	}
	g := newTestEngine(t, Options{Scenarios: lib}).NewGame()

	got, err := g.AvailableDecisions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	want := []string{"invest_dev_tools", "observability", "data"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if got[0].Title != "Invest in Agent Development Tools" {
		t.Errorf("first occurrence should win, got %q", got[0].Title)
	}
}

func TestEventSink(t *testing.T) {
	sink := &recordingSink{}
	g := newTestEngine(t, Options{Sink: sink}).NewGame()
	if _, err := g.LaunchToProduction(context.Background()); err != nil {
		t.Fatal(err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 2 {
		t.Fatalf("published %d events", len(sink.events))
	}
	if sink.events[0].Title != WelcomeTitle || sink.events[1].Title != ProductionLaunch {
		t.Errorf("events = %+v", sink.events)
	}
}

func TestStateIsSnapshot(t *testing.T) {
	g := newTestEngine(t, Options{}).NewGame()
	s := g.State()
	s.Budget = 1
	s.Events[0].Title = "changed"
	if g.State().Budget != 1000000 || g.State().Events[0].Title != WelcomeTitle {
		t.Error("State() leaked internal state")
	}
}
