package normalize

import (
	"strings"

	"github.com/mist/datasteward/internal/mdf"
)

// Mapping confidence levels for the non-fuzzy resolution steps.
const (
	confidenceExact    = 1.0
	confidenceAlias    = 0.8
	confidenceFallback = 0.3

	// fuzzyThreshold is the minimum Jaccard similarity for a fuzzy match
	// to beat the self-mapping fallback.
	fuzzyThreshold = 0.6
)

// FieldMapping records how one source column was mapped onto the canonical
// vocabulary, with a [0,1] confidence.
type FieldMapping struct {
	SourceField string  `json:"source_field"`
	TargetField string  `json:"target_field"`
	Confidence  float64 `json:"confidence"`
}

// mapFields resolves every source column against the category's canonical
// field set. Resolution order per column, first match wins:
//
//  1. exact case-insensitive match            → confidence 1.0
//  2. alias substring whose target fits       → confidence 0.8
//  3. fuzzy token-overlap above the threshold → confidence = Jaccard score
//  4. self-mapping fallback                   → confidence 0.3
//
// The result order follows the source column order, and the function is
// pure: identical inputs always produce identical mappings.
func mapFields(columns []string, category mdf.Category) []FieldMapping {
	mappings := make([]FieldMapping, 0, len(columns))

	for _, col := range columns {
		lower := strings.ToLower(col)

		if mdf.HasField(category, lower) {
			mappings = append(mappings, FieldMapping{col, lower, confidenceExact})
			continue
		}

		if target, ok := aliasTarget(lower, category); ok {
			mappings = append(mappings, FieldMapping{col, target, confidenceAlias})
			continue
		}

		if target, score, ok := fuzzyTarget(lower, category); ok {
			mappings = append(mappings, FieldMapping{col, target, score})
			continue
		}

		mappings = append(mappings, FieldMapping{col, col, confidenceFallback})
	}

	return mappings
}

// aliasTarget returns the first alias whose source appears in the column
// name and whose target is canonical for the category.
func aliasTarget(lowerCol string, category mdf.Category) (string, bool) {
	for _, alias := range mdf.Aliases {
		if strings.Contains(lowerCol, alias.Source) && mdf.HasField(category, alias.Target) {
			return alias.Target, true
		}
	}
	return "", false
}

// fuzzyTarget finds the canonical field with the highest Jaccard similarity
// to the column, accepted only above the fuzzy threshold.
func fuzzyTarget(lowerCol string, category mdf.Category) (string, float64, bool) {
	bestField := ""
	bestScore := 0.0
	for _, field := range mdf.Fields(category) {
		score := jaccard(lowerCol, field)
		if score > bestScore && score > fuzzyThreshold {
			bestScore = score
			bestField = field
		}
	}
	return bestField, bestScore, bestField != ""
}

// jaccard computes token-set similarity between two underscore-delimited
// names: |intersection| / |union| of their token sets.
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Split(s, "_") {
		set[tok] = true
	}
	return set
}
