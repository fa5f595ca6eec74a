package models

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
)

// Category groups decisions by the area they affect.
type Category string

const (
	CategoryDevelopment Category = "development"
	CategoryOperations  Category = "operations"
	CategoryData        Category = "data"
	CategorySecurity    Category = "security"
	CategoryGovernance  Category = "governance"
	CategoryStrategic   Category = "strategic"
)

// Valid returns true if c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryDevelopment, CategoryOperations, CategoryData,
		CategorySecurity, CategoryGovernance, CategoryStrategic:
		return true
	}
	return false
}

// DecisionOption is one selectable resolution of a Decision.
type DecisionOption struct {
	ID                 string        `json:"id" yaml:"id"`
	Text               string        `json:"text" yaml:"text"`
	Cost               int           `json:"cost" yaml:"cost"`
	TimeWeeks          int           `json:"time_weeks" yaml:"time_weeks"`
	ResourcesRequired  int           `json:"resources_required" yaml:"resources_required"`
	MaturityImpact     MaturityDelta `json:"maturity_impact" yaml:"maturity_impact"`
	ImmediateImpact    bool          `json:"immediate_impact" yaml:"immediate_impact"`
	DelayedImpactWeeks int           `json:"delayed_impact_weeks" yaml:"delayed_impact_weeks"`
	Consequences       string        `json:"consequences,omitempty" yaml:"consequences,omitempty"`
}

// optionFields mirrors DecisionOption with a nullable immediate flag so a
// missing value can default to true.
type optionFields struct {
	ID                 string        `json:"id" yaml:"id"`
	Text               string        `json:"text" yaml:"text"`
	Cost               int           `json:"cost" yaml:"cost"`
	TimeWeeks          int           `json:"time_weeks" yaml:"time_weeks"`
	ResourcesRequired  int           `json:"resources_required" yaml:"resources_required"`
	MaturityImpact     MaturityDelta `json:"maturity_impact" yaml:"maturity_impact"`
	ImmediateImpact    *bool         `json:"immediate_impact" yaml:"immediate_impact"`
	DelayedImpactWeeks int           `json:"delayed_impact_weeks" yaml:"delayed_impact_weeks"`
	Consequences       string        `json:"consequences" yaml:"consequences"`
}

func (f optionFields) option() DecisionOption {
	immediate := true
	if f.ImmediateImpact != nil {
		immediate = *f.ImmediateImpact
	}
	return DecisionOption{
		ID:                 f.ID,
		Text:               f.Text,
		Cost:               f.Cost,
		TimeWeeks:          f.TimeWeeks,
		ResourcesRequired:  f.ResourcesRequired,
		MaturityImpact:     f.MaturityImpact,
		ImmediateImpact:    immediate,
		DelayedImpactWeeks: f.DelayedImpactWeeks,
		Consequences:       f.Consequences,
	}
}

// UnmarshalJSON decodes an option, defaulting immediate_impact to true.
func (o *DecisionOption) UnmarshalJSON(data []byte) error {
	var f optionFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*o = f.option()
	return nil
}

// UnmarshalYAML decodes an option, defaulting immediate_impact to true.
func (o *DecisionOption) UnmarshalYAML(value *yaml.Node) error {
	var f optionFields
	if err := value.Decode(&f); err != nil {
		return err
	}
	*o = f.option()
	return nil
}

// Validate checks the option's fields. It does not consult game state.
func (o DecisionOption) Validate() error {
	switch {
	case o.ID == "":
		return invalid("option.id", "must not be empty")
	case o.Text == "":
		return invalid("option.text", "must not be empty")
	case o.Cost < 0:
		return invalid("option.cost", "must be >= 0, got %d", o.Cost)
	case o.TimeWeeks < 0:
		return invalid("option.time_weeks", "must be >= 0, got %d", o.TimeWeeks)
	case o.TimeWeeks > constants.MaxAdvanceWeeks:
		return invalid("option.time_weeks", "must be <= %d, got %d", constants.MaxAdvanceWeeks, o.TimeWeeks)
	case o.ResourcesRequired < 0:
		return invalid("option.resources_required", "must be >= 0, got %d", o.ResourcesRequired)
	case o.DelayedImpactWeeks < 0:
		return invalid("option.delayed_impact_weeks", "must be >= 0, got %d", o.DelayedImpactWeeks)
	case o.DelayedImpactWeeks > constants.MaxAdvanceWeeks:
		return invalid("option.delayed_impact_weeks", "must be <= %d, got %d", constants.MaxAdvanceWeeks, o.DelayedImpactWeeks)
	}
	return nil
}

// Decision is a presented choice point.
type Decision struct {
	ID            string           `json:"id" yaml:"id"`
	Title         string           `json:"title" yaml:"title"`
	Description   string           `json:"description" yaml:"description"`
	Category      Category         `json:"category" yaml:"category"`
	WeekAvailable int              `json:"week_available" yaml:"week_available"`
	Options       []DecisionOption `json:"options" yaml:"options"`
}

// Validate checks the decision and every option. Option ids must be unique
// within the decision.
func (d Decision) Validate() error {
	if d.ID == "" {
		return invalid("decision.id", "must not be empty")
	}
	if d.Title == "" {
		return invalid("decision.title", "must not be empty")
	}
	if !d.Category.Valid() {
		return invalid("decision.category", "unknown category %q", d.Category)
	}
	if d.WeekAvailable < 0 {
		return invalid("decision.week_available", "must be >= 0, got %d", d.WeekAvailable)
	}
	if len(d.Options) == 0 {
		return invalid("decision.options", "at least one option is required")
	}
	seen := make(map[string]bool, len(d.Options))
	for _, opt := range d.Options {
		if err := opt.Validate(); err != nil {
			return err
		}
		if seen[opt.ID] {
			return invalid("option.id", "duplicate id %q in decision %q", opt.ID, d.ID)
		}
		seen[opt.ID] = true
	}
	return nil
}

// Clone returns a deep copy of the decision.
func (d Decision) Clone() Decision {
	out := d
	out.Options = make([]DecisionOption, len(d.Options))
	for i, o := range d.Options {
		o.MaturityImpact = o.MaturityImpact.Clone()
		out.Options[i] = o
	}
	return out
}

// Option returns the option with the given id.
func (d Decision) Option(id string) (DecisionOption, bool) {
	for _, o := range d.Options {
		if o.ID == id {
			return o, true
		}
	}
	return DecisionOption{}, false
}
