package engine

import (
	"context"
	"fmt"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/schema"
)

// Game is one simulation session. All mutations go through its methods.
type Game struct {
	engine *Engine
	state  models.GameState
}

// DecisionResult is returned by ApplyDecision. A resource shortfall is
// reported here with Success false rather than as an error.
type DecisionResult struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	State   *models.GameState `json:"game_state"`
}

// ID returns the session id.
func (g *Game) ID() string {
	return g.state.SessionID
}

// State returns a snapshot of the game state.
func (g *Game) State() *models.GameState {
	return g.state.Clone()
}

// Over reports whether EndGame has been called.
func (g *Game) Over() bool {
	return g.state.GameOver
}

func (g *Game) appendEvent(ev models.GameEvent) {
	g.state.Events = append(g.state.Events, ev)
	if g.engine.sink != nil {
		ev.Impact = ev.Impact.Clone()
		g.engine.sink.Publish(g.state.SessionID, ev)
	}
}

// applyEffect is the single place where an effect changes state.
func (g *Game) applyEffect(e models.Effect) {
	switch e.Kind {
	case models.EffectBudget:
		g.state.Budget += e.Amount
	case models.EffectMaturity:
		g.state.Maturity.Apply(e.Maturity)
	case models.EffectTime:
		g.state.TimeRemainingWeeks -= e.Amount
	case models.EffectReputation:
		g.state.Reputation = clampReputation(g.state.Reputation + e.Amount)
	default:
		g.engine.logger.Warn("ignoring unknown effect", "kind", e.Kind, "session", g.state.SessionID)
	}
}

func clampReputation(v int) int {
	if v < constants.ReputationMin {
		return constants.ReputationMin
	}
	if v > constants.ReputationMax {
		return constants.ReputationMax
	}
	return v
}

// ApplyDecision validates opt, checks resources and then charges the cost,
// applies or schedules the maturity impact, advances time by the option's
// duration and records the decision.
//
// A ValidationError or ErrGameOver leaves the state untouched, as does a
// resource shortfall, which is reported as an unsuccessful result.
func (g *Game) ApplyDecision(ctx context.Context, opt models.DecisionOption) (*DecisionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.state.GameOver {
		return nil, ErrGameOver
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	if opt.ResourcesRequired > g.state.Resources {
		g.engine.logger.Info("decision rejected", "session", g.state.SessionID,
			"option", opt.ID, "required", opt.ResourcesRequired, "available", g.state.Resources)
		return &DecisionResult{Success: false, Message: insufficientMessage, State: g.State()}, nil
	}

	g.applyEffect(models.BudgetDelta(-opt.Cost))

	if opt.ImmediateImpact {
		g.applyEffect(models.MaturityChange(opt.MaturityImpact))
	} else {
		g.schedule(models.PendingImpact{
			Week:        g.state.CurrentWeek + opt.DelayedImpactWeeks,
			Title:       DelayedImpactTitle,
			Description: fmt.Sprintf(delayedDescription, opt.Text),
			Source:      models.PendingFromDecision,
			Effects:     []models.Effect{models.MaturityChange(opt.MaturityImpact.Clone())},
		})
	}

	if err := g.AdvanceTime(opt.TimeWeeks); err != nil {
		return nil, err
	}

	g.state.DecisionsMade = append(g.state.DecisionsMade, models.DecisionRecord{
		Week:           g.state.CurrentWeek,
		OptionID:       opt.ID,
		Text:           opt.Text,
		Cost:           opt.Cost,
		MaturityImpact: opt.MaturityImpact.Clone(),
	})

	g.engine.logger.Info("decision applied", "session", g.state.SessionID, "option", opt.ID,
		"cost", opt.Cost, "week", g.state.CurrentWeek, "immediate", opt.ImmediateImpact)
	return &DecisionResult{Success: true, Message: processedMessage, State: g.State()}, nil
}

// ApplyDecisionJSON validates a raw option payload against the option schema
// before decoding and applying it.
func (g *Game) ApplyDecisionJSON(ctx context.Context, raw []byte) (*DecisionResult, error) {
	opt, err := schema.DecodeOption(raw)
	if err != nil {
		return nil, err
	}
	return g.ApplyDecision(ctx, opt)
}

// schedule adds p to the deferred queue, keeping scheduling order.
func (g *Game) schedule(p models.PendingImpact) {
	g.state.Pending = append(g.state.Pending, p)
}

// AdvanceTime moves the game forward one week at a time. Each week realises
// every pending impact that has come due and then may inject one random
// event. A finished game cannot advance.
func (g *Game) AdvanceTime(weeks int) error {
	if g.state.GameOver {
		return ErrGameOver
	}
	if weeks < 0 {
		return fmt.Errorf("advance %d: %w", weeks, ErrNegativeWeeks)
	}
	if weeks > constants.MaxAdvanceWeeks {
		return &models.ValidationError{Field: "weeks", Reason: fmt.Sprintf("must be at most %d, got %d", constants.MaxAdvanceWeeks, weeks)}
	}
	for i := 0; i < weeks; i++ {
		g.state.CurrentWeek++
		g.state.TimeRemainingWeeks--
		g.drainPending()
		if g.engine.rng.Float64() < g.engine.cfg.RandomEventProbability {
			g.injectRandomEvent()
		}
	}
	return nil
}

// drainPending realises every pending impact due at or before the current
// week, in scheduling order.
func (g *Game) drainPending() {
	week := g.state.CurrentWeek
	kept := g.state.Pending[:0]
	var due []models.PendingImpact
	for _, p := range g.state.Pending {
		if p.Week <= week {
			due = append(due, p)
		} else {
			kept = append(kept, p)
		}
	}
	g.state.Pending = kept

	for _, p := range due {
		g.realise(p, week)
	}
}

// settleFallout realises production fallout still in the queue, each at the
// week it was scheduled for. Delayed decision impacts stay pending.
func (g *Game) settleFallout() {
	kept := g.state.Pending[:0]
	var due []models.PendingImpact
	for _, p := range g.state.Pending {
		if p.Source == models.PendingFromProduction {
			due = append(due, p)
		} else {
			kept = append(kept, p)
		}
	}
	g.state.Pending = kept

	for _, p := range due {
		g.realise(p, p.Week)
	}
}

// realise applies p's effects and records it as an event at week.
func (g *Game) realise(p models.PendingImpact, week int) {
	for _, e := range p.Effects {
		g.applyEffect(e)
	}
	g.appendEvent(models.GameEvent{
		Week:        week,
		Title:       p.Title,
		Description: p.Description,
		Impact:      p.Impact(),
	})
	g.engine.logger.Debug("pending impact realised", "session", g.state.SessionID,
		"title", p.Title, "source", p.Source, "scheduled", p.Week, "week", week)
}

func (g *Game) injectRandomEvent() {
	rule, ok := matchRandomEvent(g.engine.events, g.state.Maturity)
	if !ok {
		return
	}
	for _, e := range rule.Effects {
		g.applyEffect(e)
	}
	effects := make([]models.Effect, len(rule.Effects))
	for i, e := range rule.Effects {
		effects[i] = e.Clone()
	}
	g.appendEvent(models.GameEvent{
		Week:        g.state.CurrentWeek,
		Title:       rule.Title,
		Description: rule.Description,
		Impact:      models.ImpactOf(effects...),
	})
	g.engine.logger.Info("random event", "session", g.state.SessionID,
		"title", rule.Title, "week", g.state.CurrentWeek)
}
