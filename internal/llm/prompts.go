package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/schema"
)

// MaxDocumentChars bounds how much of an imported document is sent to the model.
const MaxDocumentChars = 10000

// MinDocumentChars is the shortest document worth extracting scenarios from.
const MinDocumentChars = 100

var (
	jsonBlockRe    = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)\\s*```")
	genericBlockRe = regexp.MustCompile("(?s)```\\s*\\n?(.*?)\\s*```")
)

const optionExample = `{
        "id": "option_id",
        "text": "Option description",
        "cost": 50000,
        "time_weeks": 4,
        "resources_required": 2,
        "maturity_impact": {
          "agent_development": 10,
          "agent_operations": 5,
          "data_platforms": 0,
          "security": 0,
          "governance": 0
        },
        "immediate_impact": true,
        "delayed_impact_weeks": 0,
        "consequences": "What happens if you choose this"
      }`

func maturityLines(m models.MaturityVector) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- Agent Development: %d/100\n", m.Get(models.AgentDevelopment)))
	sb.WriteString(fmt.Sprintf("- Agent Operations: %d/100\n", m.Get(models.AgentOperations)))
	sb.WriteString(fmt.Sprintf("- Data Platforms: %d/100\n", m.Get(models.DataPlatforms)))
	sb.WriteString(fmt.Sprintf("- Security: %d/100\n", m.Get(models.Security)))
	sb.WriteString(fmt.Sprintf("- Governance: %d/100\n", m.Get(models.Governance)))
	return sb.String()
}

// DecisionsPrompt asks for two or three decisions that fit the current state.
func DecisionsPrompt(state *models.GameState) string {
	return fmt.Sprintf(`You are an AI advisor for an enterprise multi-agent platform development simulation.

## Current Game State (Week %d)
- Budget: $%s
- Time Remaining: %d weeks
- Resources: %d team members
- Reputation: %d/100
- In Production: %t

## Maturity Levels
%s
## Task
Generate 2-3 realistic decision scenarios that the player must choose from. Each decision should:
1. Be relevant to the current maturity levels (focus on weaker areas)
2. Have trade-offs between cost, time, and maturity improvements
3. Include both immediate and potential delayed impacts
4. Reflect real enterprise challenges in building agentic platforms

## Response Format
Respond with ONLY a JSON array (no markdown code blocks, no additional text):
[
  {
    "id": "unique_id",
    "title": "Decision Title",
    "description": "Detailed description of the situation",
    "category": "development|operations|data|security|governance|strategic",
    "options": [
      %s
    ]
  }
]`,
		state.CurrentWeek,
		humanize.Comma(int64(state.Budget)),
		state.TimeRemainingWeeks,
		state.Resources,
		state.Reputation,
		state.IsProduction,
		maturityLines(state.Maturity),
		optionExample)
}

// ReadinessPrompt asks for a production-readiness analysis of m.
func ReadinessPrompt(m models.MaturityVector) string {
	return fmt.Sprintf(`Analyze the production readiness of a multi-agent platform with these maturity levels:

%s
## Thresholds
- Production Ready: %d+
- Minimum Acceptable: %d-%d
- Not Ready: <%d

## Response Format
Respond with ONLY a JSON object (no markdown code blocks, no additional text):
{
  "ready_for_production": true/false,
  "risk_level": "low|medium|high|critical",
  "weak_areas": ["capabilities below %d, using the names agent_development, agent_operations, data_platforms, security, governance"],
  "critical_gaps": ["capabilities below %d"],
  "potential_issues": ["3-5 specific issues that may occur in production"],
  "recommendations": ["3-5 recommendations to improve readiness"]
}`,
		maturityLines(m),
		constants.ProductionReadyThreshold,
		constants.MinimumAcceptableThreshold, constants.ProductionReadyThreshold-1,
		constants.MinimumAcceptableThreshold,
		constants.ProductionReadyThreshold,
		constants.MinimumAcceptableThreshold)
}

// ReportPrompt asks for the end-of-game report.
func ReportPrompt(state *models.GameState) string {
	production := "N/A"
	if state.ProductionWeek != nil {
		production = fmt.Sprintf("%d", *state.ProductionWeek)
	}

	return fmt.Sprintf(`Generate a comprehensive final report for an enterprise multi-agent platform development simulation.

## Final Game State
- Budget Used: $%s of $%s
- Time Taken: %d weeks
- Decisions Made: %d
- Production Launch: Week %s
- Reputation: %d/100

## Final Maturity Levels
%s
Production Issues Encountered: %d

## Response Format
Respond with ONLY a JSON object (no markdown code blocks, no additional text):
{
  "overall_score": 0-100,
  "grade": "A+|A|B|C|D|F",
  "summary": "Brief summary of performance",
  "strengths": ["3-5 strengths"],
  "weaknesses": ["3-5 weaknesses"],
  "key_learnings": ["5-7 key lessons learned"],
  "prescriptive_guidance": {
    "short_term": ["3-5 immediate actions to take"],
    "medium_term": ["3-5 actions for next 6 months"],
    "long_term": ["3-5 strategic initiatives"]
  },
  "best_practices": ["5-7 best practices for multi-agent platform development"],
  "recommendations": ["5-7 specific recommendations based on the gameplay"]
}`,
		humanize.Comma(int64(state.Spent())),
		humanize.Comma(int64(state.InitialBudget)),
		state.CurrentWeek,
		len(state.DecisionsMade),
		production,
		state.Reputation,
		maturityLines(state.Maturity),
		len(state.ProductionIssues))
}

// ExtractionPrompt asks for library scenarios drawn from document. Only the
// first MaxDocumentChars characters are included.
func ExtractionPrompt(document string) string {
	if r := []rune(document); len(r) > MaxDocumentChars {
		document = string(r[:MaxDocumentChars])
	}
	return fmt.Sprintf(`You extract game scenarios from documents about enterprise multi-agent platform development.

## Document Content
%s

## Task
Generate 3-5 realistic decision scenarios based on the document content. Each scenario should:
1. Be relevant to enterprise multi-agent platform development
2. Have 2-3 options with different trade-offs (cost, time, maturity impact)
3. Include clear consequences for each option
4. Focus on one of these categories: development, operations, data, security, governance

## Rules
- cost: between 5,000 and 200,000
- time_weeks: between 1 and 12
- resources_required: between 1 and 6
- maturity_impact: values between -20 and +40 for each capability
- week_available: between 1 and 30

## Response Format
Respond with ONLY a JSON array (no markdown code blocks, no additional text):
[
  {
    "id": "unique_scenario_id",
    "title": "Decision Title",
    "description": "Detailed description of the scenario",
    "category": "development|operations|data|security|governance",
    "week_available": 1,
    "options": [
      %s
    ]
  }
]`, document, optionExample)
}

// ParseDecisionsResponse validates and decodes a decisions reply.
func ParseDecisionsResponse(response string) ([]models.Decision, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}
	if err := schema.Validate(schema.Decisions, []byte(jsonStr)); err != nil {
		return nil, err
	}

	var decisions []models.Decision
	if err := json.Unmarshal([]byte(jsonStr), &decisions); err != nil {
		return nil, fmt.Errorf("parsing decisions: %w", err)
	}
	if len(decisions) == 0 {
		return nil, fmt.Errorf("response contained no decisions")
	}
	for _, d := range decisions {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return decisions, nil
}

// ParseReadinessResponse validates and decodes a readiness reply. Capability
// names the simulator does not know are dropped.
func ParseReadinessResponse(response string) (*models.ReadinessAnalysis, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}
	if err := schema.Validate(schema.Readiness, []byte(jsonStr)); err != nil {
		return nil, err
	}

	var raw struct {
		Ready           bool     `json:"ready_for_production"`
		RiskLevel       string   `json:"risk_level"`
		WeakAreas       []string `json:"weak_areas"`
		CriticalGaps    []string `json:"critical_gaps"`
		PotentialIssues []string `json:"potential_issues"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("parsing readiness analysis: %w", err)
	}

	return &models.ReadinessAnalysis{
		ReadyForProduction: raw.Ready,
		RiskLevel:          models.RiskLevel(raw.RiskLevel),
		WeakAreas:          capabilitiesFrom(raw.WeakAreas),
		CriticalGaps:       capabilitiesFrom(raw.CriticalGaps),
		PotentialIssues:    nonNil(raw.PotentialIssues),
		Recommendations:    nonNil(raw.Recommendations),
	}, nil
}

// ParseReportResponse validates and decodes a final report reply.
func ParseReportResponse(response string) (*models.FinalReport, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}
	if err := schema.Validate(schema.Report, []byte(jsonStr)); err != nil {
		return nil, err
	}

	var raw struct {
		OverallScore float64 `json:"overall_score"`
		models.FinalReport
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("parsing final report: %w", err)
	}

	report := raw.FinalReport
	report.OverallScore = int(math.Round(raw.OverallScore))
	return &report, nil
}

// ParseScenariosResponse decodes an extraction reply. Missing decision and
// option ids are filled with generated ones, and a missing week_available
// defaults to 1.
func ParseScenariosResponse(response string) ([]models.Decision, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var v []any
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return nil, fmt.Errorf("parsing scenarios: %w", err)
	}
	for _, item := range v {
		d, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fillID(d, "scenario")
		if _, ok := d["week_available"]; !ok {
			d["week_available"] = 1
		}
		opts, _ := d["options"].([]any)
		for _, o := range opts {
			if om, ok := o.(map[string]any); ok {
				fillID(om, "option")
			}
		}
	}

	normalized, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalizing scenarios: %w", err)
	}
	if err := schema.Validate(schema.Decisions, normalized); err != nil {
		return nil, err
	}

	var decisions []models.Decision
	if err := json.Unmarshal(normalized, &decisions); err != nil {
		return nil, fmt.Errorf("parsing scenarios: %w", err)
	}
	for _, d := range decisions {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return decisions, nil
}

func fillID(m map[string]any, prefix string) {
	if id, ok := m["id"].(string); ok && id != "" {
		return
	}
	m["id"] = prefix + "_" + uuid.NewString()[:8]
}

func capabilitiesFrom(names []string) []models.Capability {
	out := make([]models.Capability, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(n), " ", "_"))
		if c, ok := models.ParseCapability(key); ok {
			out = append(out, c)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ExtractJSON extracts JSON content from a string, handling markdown code blocks.
// It looks for JSON wrapped in ```json...``` or ```...``` blocks, or returns
// the input if it appears to be raw JSON.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	if matches := jsonBlockRe.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if matches := genericBlockRe.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}

	return ""
}
