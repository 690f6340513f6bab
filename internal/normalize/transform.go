package normalize

import (
	"fmt"
	"time"

	"github.com/mist/datasteward/internal/hipaa"
	"github.com/mist/datasteward/internal/mdf"
)

// timestampLayouts are tried in order when canonicalizing a timestamp
// column. Output is always RFC 3339.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102150405",
	"20060102",
	"01/02/2006",
}

// transformOptions tunes category-specific transformation behavior for one
// run.
type transformOptions struct {
	// linkageFields are identifier fields that must stay linkable across
	// datasets: they are one-way hashed instead of redacted.
	linkageFields map[string]bool
}

// transformRows renames columns per the field mappings, applies the
// category-specific value transformations, and de-identifies every row.
// A value that fails to parse becomes absent; a bad row never aborts the
// batch. The input rows are not modified.
func transformRows(rows []map[string]interface{}, mappings []FieldMapping, category mdf.Category, opts transformOptions) []map[string]interface{} {
	rename := make(map[string]string, len(mappings))
	for _, m := range mappings {
		rename[m.SourceField] = m.TargetField
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		renamed := make(map[string]interface{}, len(row))
		for col, val := range row {
			target, ok := rename[col]
			if !ok {
				target = col
			}
			renamed[target] = val
		}

		applyValueTransforms(renamed, category)
		out = append(out, hipaa.DeidentifyLinked(renamed, opts.linkageFields))
	}
	return out
}

func applyValueTransforms(row map[string]interface{}, category mdf.Category) {
	if ts, ok := row["timestamp"]; ok {
		if canonical, ok := canonicalTimestamp(ts); ok {
			row["timestamp"] = canonical
		} else {
			delete(row, "timestamp")
		}
	}

	if category == mdf.CategoryDemographics {
		if age, ok := row["age"]; ok {
			row["age_range"] = hipaa.AgeToRange(age)
			delete(row, "age")
		}
		// A raw age renamed into age_range by the alias table is still an
		// exact age; bucket it so no record ever leaves with one.
		if v, ok := row["age_range"]; ok {
			if _, isStr := v.(string); !isStr {
				row["age_range"] = hipaa.AgeToRange(v)
			}
		}
	}

	if zip, ok := row["zip_code_prefix"]; ok {
		if prefix := hipaa.ZIPPrefix(zip); prefix != "" {
			row["zip_code_prefix"] = prefix
		} else {
			delete(row, "zip_code_prefix")
		}
	}

	if category == mdf.CategoryVitals {
		if unit, ok := row["unit"]; ok {
			row["unit"] = mdf.CanonicalUnit(fmt.Sprintf("%v", unit))
		}
	}
}

// canonicalTimestamp parses a scalar into RFC 3339. The boolean is false
// when the value cannot be interpreted as a date-time.
func canonicalTimestamp(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.RFC3339), true
		}
	}
	return "", false
}
