package scenario

import (
	"context"
	"fmt"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/similarity"
)

// FindSimilar returns the id of the first scenario in existing whose
// similarity to d reaches threshold.
func FindSimilar(existing []models.Decision, d models.Decision, threshold float64) (string, bool) {
	for _, e := range existing {
		if similarity.ScenarioSimilarity(e, d) >= threshold {
			return e.ID, true
		}
	}
	return "", false
}

// ImportDistinct is Import for generated content. A scenario that closely
// matches one already in lib, or an earlier one in the batch, is skipped
// like a duplicate id.
func ImportDistinct(ctx context.Context, lib Library, decisions []models.Decision, threshold float64) (ImportResult, error) {
	existing, err := lib.All(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("list scenarios: %w", err)
	}

	distinct := make([]models.Decision, 0, len(decisions))
	var near []string
	for _, d := range decisions {
		d = d.Clone()
		AssignIDs(&d)
		if _, found := FindSimilar(existing, d, threshold); found {
			near = append(near, d.ID)
			continue
		}
		existing = append(existing, d)
		distinct = append(distinct, d)
	}

	res, err := Import(ctx, lib, distinct)
	res.Skipped = append(res.Skipped, near...)
	return res, err
}
