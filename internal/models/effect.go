package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// EffectKind tags the variant held by an Effect.
type EffectKind string

const (
	EffectBudget     EffectKind = "budget"
	EffectMaturity   EffectKind = "maturity"
	EffectTime       EffectKind = "time"
	EffectReputation EffectKind = "reputation"
)

// Effect is a single state change carried by an event or a pending impact.
// Amount is used by budget, time and reputation effects; Maturity by
// maturity effects.
type Effect struct {
	Kind     EffectKind    `json:"kind"`
	Amount   int           `json:"amount,omitempty"`
	Maturity MaturityDelta `json:"maturity,omitempty"`
}

// BudgetDelta adds n to the budget. Negative n is a charge.
func BudgetDelta(n int) Effect { return Effect{Kind: EffectBudget, Amount: n} }

// MaturityChange applies d to the maturity vector.
func MaturityChange(d MaturityDelta) Effect { return Effect{Kind: EffectMaturity, Maturity: d} }

// TimeDelta costs n weeks of remaining time.
func TimeDelta(n int) Effect { return Effect{Kind: EffectTime, Amount: n} }

// ReputationDelta adds n to reputation.
func ReputationDelta(n int) Effect { return Effect{Kind: EffectReputation, Amount: n} }

// Clone returns a copy that shares no maps with e.
func (e Effect) Clone() Effect {
	e.Maturity = e.Maturity.Clone()
	return e
}

// String returns a short human-readable form, e.g. "budget -20000".
func (e Effect) String() string {
	if e.Kind == EffectMaturity {
		parts := make([]string, 0, len(e.Maturity))
		for _, c := range sortedCapabilities(e.Maturity) {
			parts = append(parts, fmt.Sprintf("%s %+d", c, e.Maturity[c]))
		}
		return fmt.Sprintf("maturity %v", parts)
	}
	return fmt.Sprintf("%s %+d", e.Kind, e.Amount)
}

// Impact is the payload attached to a GameEvent: a list of effects plus
// marker fields used by production events.
type Impact struct {
	Effects    []Effect
	Production bool
	RiskLevel  RiskLevel
	Severity   string
}

// ImpactOf builds an impact from effects.
func ImpactOf(effects ...Effect) Impact {
	return Impact{Effects: effects}
}

// IsZero reports whether the impact carries nothing.
func (i Impact) IsZero() bool {
	return len(i.Effects) == 0 && !i.Production && i.RiskLevel == "" && i.Severity == ""
}

// Clone returns a deep copy of the impact.
func (i Impact) Clone() Impact {
	out := i
	if i.Effects != nil {
		out.Effects = make([]Effect, len(i.Effects))
		for n, e := range i.Effects {
			out.Effects[n] = e.Clone()
		}
	}
	return out
}

// MarshalJSON encodes the impact as a flat object such as
// {"budget":-30000,"time":2} or {"maturity":{"agent_operations":-5}}.
// Effects of the same kind are summed.
func (i Impact) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	var maturity MaturityDelta
	for _, e := range i.Effects {
		switch e.Kind {
		case EffectBudget, EffectTime, EffectReputation:
			prev, _ := out[string(e.Kind)].(int)
			out[string(e.Kind)] = prev + e.Amount
		case EffectMaturity:
			if maturity == nil {
				maturity = make(MaturityDelta)
			}
			for c, v := range e.Maturity {
				maturity[c] += v
			}
		default:
			return nil, fmt.Errorf("unknown effect kind %q", e.Kind)
		}
	}
	if maturity != nil {
		out["maturity"] = maturity.Raw()
	}
	if i.Production {
		out["production"] = true
	}
	if i.RiskLevel != "" {
		out["risk_level"] = i.RiskLevel
	}
	if i.Severity != "" {
		out["severity"] = i.Severity
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the flat object form. "cost" is accepted as a
// synonym for "budget", and top-level capability keys are folded into the
// maturity effect.
func (i *Impact) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Impact
	maturity := make(MaturityDelta)
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		switch key {
		case "budget", "cost":
			var n int
			if err := json.Unmarshal(value, &n); err != nil {
				return fmt.Errorf("impact %s: %w", key, err)
			}
			out.Effects = append(out.Effects, BudgetDelta(n))
		case "time":
			var n int
			if err := json.Unmarshal(value, &n); err != nil {
				return fmt.Errorf("impact time: %w", err)
			}
			out.Effects = append(out.Effects, TimeDelta(n))
		case "reputation":
			var n int
			if err := json.Unmarshal(value, &n); err != nil {
				return fmt.Errorf("impact reputation: %w", err)
			}
			out.Effects = append(out.Effects, ReputationDelta(n))
		case "maturity":
			var m map[string]int
			if err := json.Unmarshal(value, &m); err != nil {
				return fmt.Errorf("impact maturity: %w", err)
			}
			for c, v := range ParseMaturityDelta(m) {
				maturity[c] += v
			}
		case "production":
			if err := json.Unmarshal(value, &out.Production); err != nil {
				return fmt.Errorf("impact production: %w", err)
			}
		case "risk_level":
			if err := json.Unmarshal(value, &out.RiskLevel); err != nil {
				return fmt.Errorf("impact risk_level: %w", err)
			}
		case "severity":
			if err := json.Unmarshal(value, &out.Severity); err != nil {
				return fmt.Errorf("impact severity: %w", err)
			}
		default:
			if c, ok := ParseCapability(key); ok {
				var n int
				if err := json.Unmarshal(value, &n); err != nil {
					return fmt.Errorf("impact %s: %w", key, err)
				}
				maturity[c] += n
			}
		}
	}
	if len(maturity) > 0 {
		out.Effects = append(out.Effects, MaturityChange(maturity))
	}
	*i = out
	return nil
}
