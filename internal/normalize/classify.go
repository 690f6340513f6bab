package normalize

import (
	"strings"

	"github.com/mist/datasteward/internal/mdf"
)

// classifyColumns scores every MDF category against a column-name set and
// returns the best match. Scoring per column: +1 when the lower-cased
// column contains, or is contained by, a canonical field of the category;
// +0.5 when the column matches an alias whose target belongs to the
// category. Ties resolve to the earliest category in the fixed declaration
// order; a zero maximum yields CategoryUnknown.
//
// The mixed 1.0/0.5 increments are deliberately not normalized by category
// field-set size; larger categories score more containment chances.
func classifyColumns(columns []string) mdf.Category {
	scores := make(map[mdf.Category]float64, len(mdf.Categories))

	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, category := range mdf.Categories {
			for _, field := range mdf.Fields(category) {
				if strings.Contains(lower, field) || strings.Contains(field, lower) {
					scores[category]++
				}
			}
			for _, alias := range mdf.Aliases {
				if strings.Contains(lower, alias.Source) && mdf.HasField(category, alias.Target) {
					scores[category] += 0.5
				}
			}
		}
	}

	best := mdf.CategoryUnknown
	bestScore := 0.0
	for _, category := range mdf.Categories {
		if scores[category] > bestScore {
			best = category
			bestScore = scores[category]
		}
	}
	return best
}
