package normalize

import (
	"math"
	"reflect"
	"testing"

	"github.com/mist/datasteward/internal/mdf"
)

func TestMapFieldsResolutionOrder(t *testing.T) {
	tests := []struct {
		name       string
		column     string
		category   mdf.Category
		wantTarget string
		wantConf   float64
	}{
		{"exact match", "value", mdf.CategoryLabResults, "value", 1.0},
		{"exact match is case-insensitive", "VALUE", mdf.CategoryLabResults, "value", 1.0},
		{"alias substring", "patient_age", mdf.CategoryDemographics, "age_range", 0.8},
		{"alias hr", "HR", mdf.CategoryVitals, "vital_type", 0.8},
		{"alias date", "Date", mdf.CategoryVitals, "timestamp", 0.8},
		{"alias beats fuzzy", "name_test", mdf.CategoryLabResults, "test_name", 0.8},
		{"earlier alias wins", "test_result", mdf.CategoryLabResults, "test_name", 0.8},
		{"fuzzy token overlap", "range_reference", mdf.CategoryLabResults, "reference_range", 1.0},
		{"fallback self-map", "operator_notes", mdf.CategoryLabResults, "operator_notes", 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapFields([]string{tt.column}, tt.category)
			if len(got) != 1 {
				t.Fatalf("got %d mappings, want 1", len(got))
			}
			m := got[0]
			if m.SourceField != tt.column {
				t.Errorf("source = %q, want %q", m.SourceField, tt.column)
			}
			if m.TargetField != tt.wantTarget {
				t.Errorf("target = %q, want %q", m.TargetField, tt.wantTarget)
			}
			if math.Abs(m.Confidence-tt.wantConf) > 1e-9 {
				t.Errorf("confidence = %v, want %v", m.Confidence, tt.wantConf)
			}
		})
	}
}

// "lab_value" shares one of two tokens with "value": Jaccard 0.5, below the
// 0.6 threshold, so it must self-map at fallback confidence rather than
// fuzzy-match.
func TestMapFieldsFuzzyThresholdIsStrict(t *testing.T) {
	got := mapFields([]string{"lab_value"}, mdf.CategoryLabResults)
	m := got[0]
	if m.TargetField != "lab_value" {
		t.Fatalf("target = %q, want self-map", m.TargetField)
	}
	if m.Confidence != 0.3 {
		t.Fatalf("confidence = %v, want 0.3", m.Confidence)
	}
}

func TestMapFieldsFuzzyConfidenceIsScore(t *testing.T) {
	// {reference,range,high} vs {reference,range}: 2/3.
	got := mapFields([]string{"reference_range_high"}, mdf.CategoryLabResults)
	m := got[0]
	if m.TargetField != "reference_range" {
		t.Fatalf("target = %q, want reference_range", m.TargetField)
	}
	if math.Abs(m.Confidence-2.0/3.0) > 1e-9 {
		t.Fatalf("confidence = %v, want 2/3", m.Confidence)
	}
}

func TestMapFieldsPreservesColumnOrder(t *testing.T) {
	columns := []string{"test_name", "Result_Value", "unit", "collected"}
	got := mapFields(columns, mdf.CategoryLabResults)
	if len(got) != len(columns) {
		t.Fatalf("got %d mappings, want %d", len(got), len(columns))
	}
	for i, m := range got {
		if m.SourceField != columns[i] {
			t.Errorf("mapping %d source = %q, want %q", i, m.SourceField, columns[i])
		}
	}
}

func TestMapFieldsDeterministic(t *testing.T) {
	columns := []string{"Date", "heart_rate_bpm", "test_name", "lab_value", "notes"}
	first := mapFields(columns, mdf.CategoryLabResults)
	for i := 0; i < 50; i++ {
		if got := mapFields(columns, mdf.CategoryLabResults); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced different mappings:\n%v\n%v", i, got, first)
		}
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"test_name", "name_test", 1.0},
		{"lab_value", "value", 0.5},
		{"a_b_c", "a_b", 2.0 / 3.0},
		{"foo", "bar", 0},
		{"", "value", 0}, // empty token set never matches
	}
	for _, tt := range tests {
		if got := jaccard(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
