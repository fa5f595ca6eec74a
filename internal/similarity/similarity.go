package similarity

import (
	"strings"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// ContentSimilarity calculates the Jaccard index of the token sets of a and b.
// Two empty strings are identical.
func ContentSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range Tokenize(s) {
		set[w] = true
	}
	return set
}

// ScenarioSimilarity scores two scenarios from 0 to 1, weighting the title
// and description over the option texts.
func ScenarioSimilarity(a, b models.Decision) float64 {
	text := ContentSimilarity(a.Title+" "+a.Description, b.Title+" "+b.Description)
	options := ContentSimilarity(optionText(a), optionText(b))
	return WeightedScore(text, options)
}

// WeightedScore combines text and option similarity with the standard weights.
func WeightedScore(text, options float64) float64 {
	return text*constants.ScenarioTextWeight + options*constants.ScenarioOptionWeight
}

func optionText(d models.Decision) string {
	parts := make([]string, 0, len(d.Options))
	for _, o := range d.Options {
		parts = append(parts, o.Text)
	}
	return strings.Join(parts, " ")
}
