// Package render formats game state and results for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const barWidth = 20

// Money formats a dollar amount with thousands separators.
func Money(n int) string {
	if n < 0 {
		return "-$" + humanize.Comma(int64(-n))
	}
	return "$" + humanize.Comma(int64(n))
}

// levelStyle colours a maturity level against the production thresholds.
func levelStyle(level int) lipgloss.Style {
	switch {
	case level >= constants.ProductionReadyThreshold:
		return goodStyle
	case level >= constants.MinimumAcceptableThreshold:
		return warnStyle
	default:
		return badStyle
	}
}

// Bar draws a fixed-width maturity bar for a 0..100 level.
func Bar(level int) string {
	filled := level * barWidth / constants.MaturityMax
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// State writes the dashboard: resources, maturity bars and recent events.
func State(w io.Writer, st *models.GameState) {
	var b strings.Builder

	status := "development"
	if st.IsProduction {
		status = "production"
	}
	if st.GameOver {
		status = "game over"
	}
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(fmt.Sprintf("Week %d", st.CurrentWeek)), dimStyle.Render(status))
	fmt.Fprintf(&b, "Budget     %s of %s\n", Money(st.Budget), Money(st.InitialBudget))
	fmt.Fprintf(&b, "Time left  %d weeks\n", st.TimeRemainingWeeks)
	fmt.Fprintf(&b, "Resources  %d\n", st.Resources)
	fmt.Fprintf(&b, "Reputation %d\n\n", st.Reputation)

	for _, c := range models.Capabilities() {
		level := st.Maturity.Get(c)
		style := levelStyle(level)
		fmt.Fprintf(&b, "%-18s %s %s\n", c, style.Render(Bar(level)), style.Render(fmt.Sprintf("%3d", level)))
	}

	if n := len(st.Pending); n > 0 {
		fmt.Fprintf(&b, "\n%s\n", dimStyle.Render(fmt.Sprintf("%d pending impact(s), next due week %d", n, nextDue(st.Pending))))
	}
	fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(b.String(), "\n")))

	Events(w, recent(st.Events, 3))
}

func nextDue(pending []models.PendingImpact) int {
	week := pending[0].Week
	for _, p := range pending[1:] {
		week = min(week, p.Week)
	}
	return week
}

func recent(events []models.GameEvent, n int) []models.GameEvent {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

// Events writes an event log, oldest first.
func Events(w io.Writer, events []models.GameEvent) {
	if len(events) == 0 {
		return
	}
	fmt.Fprintln(w, headingStyle.Render("Events"))
	for _, ev := range events {
		title := ev.Title
		if ev.Impact.Production {
			title = badStyle.Render(title)
		}
		fmt.Fprintf(w, "  [week %d] %s\n", ev.Week, title)
		if ev.Description != "" {
			fmt.Fprintf(w, "    %s\n", dimStyle.Render(ev.Description))
		}
	}
}

// Decisions writes the available decisions with numbered options. The
// numbering is decision.option, starting at 1.
func Decisions(w io.Writer, decisions []models.Decision) {
	if len(decisions) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No decisions available."))
		return
	}
	for i, d := range decisions {
		fmt.Fprintf(w, "%s %s\n", headingStyle.Render(fmt.Sprintf("%d.", i+1)), titleStyle.Render(d.Title))
		fmt.Fprintf(w, "   %s\n", dimStyle.Render(fmt.Sprintf("%s · %s", d.Category, d.ID)))
		if d.Description != "" {
			fmt.Fprintf(w, "   %s\n", d.Description)
		}
		for j, o := range d.Options {
			fmt.Fprintf(w, "   %d.%d %s\n", i+1, j+1, o.Text)
			fmt.Fprintf(w, "       %s\n", dimStyle.Render(optionTerms(o)))
		}
		fmt.Fprintln(w)
	}
}

func optionTerms(o models.DecisionOption) string {
	terms := fmt.Sprintf("%s, %d wk, %d res", Money(o.Cost), o.TimeWeeks, o.ResourcesRequired)
	if !o.ImmediateImpact {
		terms += fmt.Sprintf(", lands after %d wk", o.DelayedImpactWeeks)
	}
	var impacts []string
	for _, c := range models.Capabilities() {
		if v, ok := o.MaturityImpact[c]; ok && v != 0 {
			impacts = append(impacts, fmt.Sprintf("%s %+d", c, v))
		}
	}
	if len(impacts) > 0 {
		terms += " | " + strings.Join(impacts, ", ")
	}
	return terms
}

// DecisionResult writes the outcome of applying an option.
func DecisionResult(w io.Writer, res *engine.DecisionResult) {
	if res.Success {
		fmt.Fprintln(w, goodStyle.Render(res.Message))
		return
	}
	fmt.Fprintln(w, badStyle.Render(res.Message))
}

// Launch writes a production launch result with its readiness analysis.
func Launch(w io.Writer, res *engine.LaunchResult) {
	if !res.Success {
		fmt.Fprintln(w, warnStyle.Render(res.Message))
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Launched to production"))
	if a := res.Analysis; a != nil {
		risk := string(a.RiskLevel)
		switch a.RiskLevel {
		case models.RiskLow:
			risk = goodStyle.Render(risk)
		case models.RiskHigh, models.RiskCritical:
			risk = badStyle.Render(risk)
		default:
			risk = warnStyle.Render(risk)
		}
		fmt.Fprintf(w, "Risk level: %s\n", risk)
		list(w, "Potential issues", a.PotentialIssues)
		list(w, "Recommendations", a.Recommendations)
	}
	if n := len(res.Fallout); n > 0 {
		fmt.Fprintln(w, badStyle.Render(fmt.Sprintf("%d production incident(s) scheduled", n)))
		for _, f := range res.Fallout {
			fmt.Fprintf(w, "  week %d: %s (%s)\n", f.Week, f.Title, f.Severity)
		}
	}
}

// Report writes the final report.
func Report(w io.Writer, res *engine.EndResult) {
	r := res.Report
	if r == nil {
		return
	}
	grade := levelStyle(r.OverallScore).Render(r.Grade)
	fmt.Fprintln(w, panelStyle.Render(fmt.Sprintf("%s\nScore %d  Grade %s",
		titleStyle.Render("Final report"), r.OverallScore, grade)))
	if r.Summary != "" {
		fmt.Fprintln(w, r.Summary)
	}
	if st := res.State; st != nil {
		fmt.Fprintf(w, "Spent %s over %d weeks, %s\n",
			Money(st.InitialBudget-st.Budget), st.CurrentWeek,
			english.Plural(len(st.DecisionsMade), "decision", "decisions"))
	}
	list(w, "Strengths", r.Strengths)
	list(w, "Weaknesses", r.Weaknesses)
	list(w, "Key learnings", r.KeyLearnings)
	list(w, "Short term", r.PrescriptiveGuidance.ShortTerm)
	list(w, "Medium term", r.PrescriptiveGuidance.MediumTerm)
	list(w, "Long term", r.PrescriptiveGuidance.LongTerm)
	list(w, "Best practices", r.BestPractices)
	list(w, "Recommendations", r.Recommendations)
}

// Scenarios writes a one-line-per-scenario library listing.
func Scenarios(w io.Writer, decisions []models.Decision) {
	for _, d := range decisions {
		fmt.Fprintf(w, "%-32s week %-3d %-14s %s\n", d.ID, d.WeekAvailable, d.Category,
			dimStyle.Render(fmt.Sprintf("%s, %s", d.Title, english.Plural(len(d.Options), "option", "options"))))
	}
}

// Scenario writes a single scenario with its options.
func Scenario(w io.Writer, d *models.Decision) {
	fmt.Fprintf(w, "%s\n", titleStyle.Render(d.Title))
	fmt.Fprintf(w, "%s\n", dimStyle.Render(fmt.Sprintf("%s · %s · week %d", d.ID, d.Category, d.WeekAvailable)))
	if d.Description != "" {
		fmt.Fprintln(w, d.Description)
	}
	for _, o := range d.Options {
		fmt.Fprintf(w, "  - %s: %s\n", o.ID, o.Text)
		fmt.Fprintf(w, "    %s\n", dimStyle.Render(optionTerms(o)))
		if o.Consequences != "" {
			fmt.Fprintf(w, "    %s\n", o.Consequences)
		}
	}
}

func list(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, headingStyle.Render(heading))
	for _, it := range items {
		fmt.Fprintf(w, "  • %s\n", it)
	}
}
