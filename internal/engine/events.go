package engine

import (
	"fmt"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// Event titles the engine writes itself.
const (
	WelcomeTitle        = "Welcome to Agentic Platform Simulation"
	DelayedImpactTitle  = "Delayed Impact Realized"
	ProductionLaunch    = "Production Launch"
	SeverityCritical    = "Critical"
	SeverityMajor       = "Major"
	welcomeDescription  = "You have been appointed to lead the development of a multi-agent platform. You must make strategic decisions to build a production-ready platform within the given budget and timeline."
	delayedDescription  = "Previous investment in '%s' is now showing results"
	launchDescription   = "Platform launched to production. Risk Level: %s"
	insufficientMessage = "Insufficient resources"
	processedMessage    = "Decision processed successfully"
)

// RandomEvent is one rule in the random-event table. When the injector
// fires it appends the first rule whose Condition holds.
type RandomEvent struct {
	Title       string
	Description string
	Condition   func(m models.MaturityVector) bool
	Effects     []models.Effect
}

// DefaultRandomEvents returns the standard rule table in priority order.
func DefaultRandomEvents() []RandomEvent {
	return []RandomEvent{
		{
			Title:       "Security Audit Required",
			Description: "A security audit has revealed potential vulnerabilities. Additional security measures needed.",
			Condition:   below(models.Security, 40),
			Effects:     []models.Effect{models.BudgetDelta(-20000)},
		},
		{
			Title:       "Data Quality Issues",
			Description: "Poor data quality is affecting agent performance.",
			Condition:   below(models.DataPlatforms, 40),
			Effects: []models.Effect{
				models.MaturityChange(models.MaturityDelta{models.AgentOperations: -5}),
			},
		},
		{
			Title:       "Compliance Review",
			Description: "Regulatory compliance review identified gaps in governance.",
			Condition:   below(models.Governance, 50),
			Effects:     []models.Effect{models.BudgetDelta(-30000), models.TimeDelta(2)},
		},
	}
}

func below(c models.Capability, threshold int) func(models.MaturityVector) bool {
	return func(m models.MaturityVector) bool { return m.Get(c) < threshold }
}

// matchRandomEvent returns the first rule that applies to m.
func matchRandomEvent(rules []RandomEvent, m models.MaturityVector) (RandomEvent, bool) {
	for _, r := range rules {
		if r.Condition != nil && r.Condition(m) {
			return r, true
		}
	}
	return RandomEvent{}, false
}

// fallout is the consequence of launching with a capability below the
// production threshold.
type fallout struct {
	title       string
	description string
	budget      int
	reputation  int
}

var falloutTable = map[models.Capability]fallout{
	models.AgentDevelopment: {
		title:       "Agent Development Issues",
		description: "Agents are experiencing frequent errors due to inadequate development practices.",
		budget:      -50000,
		reputation:  -10,
	},
	models.AgentOperations: {
		title:       "Operational Issues",
		description: "Poor monitoring and operations leading to downtime and performance problems.",
		budget:      -75000,
		reputation:  -15,
	},
	models.DataPlatforms: {
		title:       "Data Platform Issues",
		description: "Data quality and availability issues causing agent failures.",
		budget:      -60000,
		reputation:  -12,
	},
	models.Security: {
		title:       "Security Breach",
		description: "Security vulnerabilities exploited, requiring immediate response.",
		budget:      -150000,
		reputation:  -25,
	},
	models.Governance: {
		title:       "Governance and Compliance Issues",
		description: "Lack of governance causing compliance violations and audit failures.",
		budget:      -100000,
		reputation:  -20,
	},
}

// falloutFor builds the pending impact for capability c at the given week.
func falloutFor(c models.Capability, level, week int) models.PendingImpact {
	f := falloutTable[c]
	severity := SeverityMajor
	if level < constants.MinimumAcceptableThreshold {
		severity = SeverityCritical
	}
	return models.PendingImpact{
		Week:        week,
		Title:       fmt.Sprintf("%s: %s", severity, f.title),
		Description: f.description,
		Source:      models.PendingFromProduction,
		Effects:     []models.Effect{models.BudgetDelta(f.budget), models.ReputationDelta(f.reputation)},
		Severity:    severity,
	}
}
