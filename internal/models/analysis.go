package models

// RiskLevel is the launch risk band.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid returns true if r is a known risk level.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Source records where a generated value came from.
type Source string

const (
	SourceGenerator Source = "generator"
	SourceFallback  Source = "fallback"
)

// ReadinessAnalysis is the launch assessment for a maturity snapshot.
type ReadinessAnalysis struct {
	ReadyForProduction bool         `json:"ready_for_production"`
	RiskLevel          RiskLevel    `json:"risk_level"`
	WeakAreas          []Capability `json:"weak_areas"`
	CriticalGaps       []Capability `json:"critical_gaps"`
	PotentialIssues    []string     `json:"potential_issues"`
	Recommendations    []string     `json:"recommendations"`
	Source             Source       `json:"source,omitempty"`
}

// PrescriptiveGuidance splits recommendations by horizon.
type PrescriptiveGuidance struct {
	ShortTerm  []string `json:"short_term"`
	MediumTerm []string `json:"medium_term"`
	LongTerm   []string `json:"long_term"`
}

// Grades accepted in a final report.
var Grades = []string{"A+", "A", "B", "C", "D", "F"}

// ValidGrade returns true if g is one of Grades.
func ValidGrade(g string) bool {
	for _, v := range Grades {
		if v == g {
			return true
		}
	}
	return false
}

// FinalReport is the end-of-game assessment.
type FinalReport struct {
	OverallScore         int                  `json:"overall_score"`
	Grade                string               `json:"grade"`
	Summary              string               `json:"summary"`
	Strengths            []string             `json:"strengths"`
	Weaknesses           []string             `json:"weaknesses"`
	KeyLearnings         []string             `json:"key_learnings"`
	PrescriptiveGuidance PrescriptiveGuidance `json:"prescriptive_guidance"`
	BestPractices        []string             `json:"best_practices"`
	Recommendations      []string             `json:"recommendations"`
	Source               Source               `json:"source,omitempty"`
}
