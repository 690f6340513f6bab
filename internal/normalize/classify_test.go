package normalize

import (
	"testing"

	"github.com/mist/datasteward/internal/mdf"
)

func TestClassifyColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    mdf.Category
	}{
		{
			name:    "vitals via aliases",
			columns: []string{"Date", "HR", "BP", "Temp"},
			want:    mdf.CategoryVitals,
		},
		{
			name:    "lab results via canonical names",
			columns: []string{"test_name", "value", "unit"},
			want:    mdf.CategoryLabResults,
		},
		{
			name:    "medications",
			columns: []string{"drug", "dose", "frequency"},
			want:    mdf.CategoryMedications,
		},
		{
			name:    "diagnoses",
			columns: []string{"diagnosis_code", "diagnosis_name", "severity"},
			want:    mdf.CategoryDiagnoses,
		},
		{
			name:    "procedures",
			columns: []string{"procedure_code", "procedure_date", "provider"},
			want:    mdf.CategoryProcedures,
		},
		{
			name:    "demographics via aliases",
			columns: []string{"age", "sex", "zip"},
			want:    mdf.CategoryDemographics,
		},
		{
			name:    "no recognizable columns",
			columns: []string{"foo", "bar", "baz"},
			want:    mdf.CategoryUnknown,
		},
		{
			name:    "no columns",
			columns: nil,
			want:    mdf.CategoryUnknown,
		},
		{
			name:    "case insensitive",
			columns: []string{"TIMESTAMP", "Vital_Type", "VALUE"},
			want:    mdf.CategoryVitals,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyColumns(tt.columns); got != tt.want {
				t.Errorf("classifyColumns(%v) = %s, want %s", tt.columns, got, tt.want)
			}
		})
	}
}

// "Date" scores medications through start_date/end_date containment, tying
// with the alias-driven vitals score; the tie must resolve to the earlier
// category in the fixed order.
func TestClassifyTieBreaksByCategoryOrder(t *testing.T) {
	got := classifyColumns([]string{"Date", "HR", "BP", "Temp"})
	if got != mdf.CategoryVitals {
		t.Fatalf("tie resolved to %s, want %s", got, mdf.CategoryVitals)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	columns := []string{"age", "gender", "zip_code", "status", "value"}
	first := classifyColumns(columns)
	for i := 0; i < 50; i++ {
		if got := classifyColumns(columns); got != first {
			t.Fatalf("run %d: got %s, first run gave %s", i, got, first)
		}
	}
}
