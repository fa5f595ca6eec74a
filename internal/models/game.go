package models

// GameEvent is a week-stamped entry in the event log. Events are never
// modified after they are appended.
type GameEvent struct {
	Week        int    `json:"week"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      Impact `json:"impact"`
}

// PendingSource records what scheduled a pending impact.
type PendingSource string

const (
	PendingFromDecision   PendingSource = "decision"
	PendingFromProduction PendingSource = "production"
)

// PendingImpact is a set of effects deferred until Week is reached.
type PendingImpact struct {
	Week        int           `json:"week"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Source      PendingSource `json:"source"`
	Effects     []Effect      `json:"effects"`

	// Severity is set for production fallout ("Critical" or "Major").
	Severity string `json:"severity,omitempty"`
}

// Clone returns a deep copy of the pending impact.
func (p PendingImpact) Clone() PendingImpact {
	out := p
	if p.Effects != nil {
		out.Effects = make([]Effect, len(p.Effects))
		for i, e := range p.Effects {
			out.Effects[i] = e.Clone()
		}
	}
	return out
}

// Impact returns the event payload recorded when the pending impact is
// realised.
func (p PendingImpact) Impact() Impact {
	imp := ImpactOf(p.Effects...)
	imp.Severity = p.Severity
	return imp.Clone()
}

// DecisionRecord is an entry in the decisions log.
type DecisionRecord struct {
	Week           int           `json:"week"`
	OptionID       string        `json:"option_id"`
	Text           string        `json:"text"`
	Cost           int           `json:"cost"`
	MaturityImpact MaturityDelta `json:"maturity_impact"`
}

// GameState is the root of a simulation session.
//
// Budget and TimeRemainingWeeks have no floor. Resources is a ceiling that
// decisions are checked against and never decremented. CurrentWeek only
// grows. DecisionsMade and Events are append-only. IsProduction and GameOver
// only ever flip from false to true.
type GameState struct {
	SessionID          string         `json:"session_id"`
	InitialBudget      int            `json:"initial_budget"`
	Budget             int            `json:"budget"`
	TimeRemainingWeeks int            `json:"time_remaining_weeks"`
	Resources          int            `json:"resources"`
	CurrentWeek        int            `json:"current_week"`
	Maturity           MaturityVector `json:"maturity"`
	Reputation         int            `json:"reputation"`

	DecisionsMade []DecisionRecord `json:"decisions_made"`
	Events        []GameEvent      `json:"events"`

	// Pending mirrors the engine's deferred queue in scheduling order.
	Pending []PendingImpact `json:"pending"`

	IsProduction     bool     `json:"is_production"`
	ProductionWeek   *int     `json:"production_week"`
	ProductionIssues []string `json:"production_issues"`
	GameOver         bool     `json:"game_over"`
}

// Clone returns a deep copy so callers can read a snapshot without
// observing later mutations.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s

	out.DecisionsMade = make([]DecisionRecord, len(s.DecisionsMade))
	for i, d := range s.DecisionsMade {
		d.MaturityImpact = d.MaturityImpact.Clone()
		out.DecisionsMade[i] = d
	}

	out.Events = make([]GameEvent, len(s.Events))
	for i, e := range s.Events {
		e.Impact = e.Impact.Clone()
		out.Events[i] = e
	}

	out.Pending = make([]PendingImpact, len(s.Pending))
	for i, p := range s.Pending {
		out.Pending[i] = p.Clone()
	}

	if s.ProductionWeek != nil {
		w := *s.ProductionWeek
		out.ProductionWeek = &w
	}
	out.ProductionIssues = append([]string{}, s.ProductionIssues...)
	return &out
}

// Spent returns how much of the initial budget has been used.
func (s *GameState) Spent() int {
	return s.InitialBudget - s.Budget
}

// LastEvent returns the most recently appended event, or false if the log is
// empty.
func (s *GameState) LastEvent() (GameEvent, bool) {
	if len(s.Events) == 0 {
		return GameEvent{}, false
	}
	return s.Events[len(s.Events)-1], true
}
