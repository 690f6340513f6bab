package mdf

import "testing"

func TestFields(t *testing.T) {
	for _, c := range Categories {
		if len(Fields(c)) == 0 {
			t.Errorf("category %s has no fields", c)
		}
	}
	if got := Fields(CategoryUnknown); got != nil {
		t.Errorf("Fields(unknown) = %v, want nil", got)
	}
	if got := Fields(CategoryVitals)[0]; got != "timestamp" {
		t.Errorf("vitals first field = %q, want timestamp", got)
	}
}

func TestHasField(t *testing.T) {
	tests := []struct {
		category Category
		field    string
		want     bool
	}{
		{CategoryVitals, "vital_type", true},
		{CategoryVitals, "test_name", false},
		{CategoryLabResults, "reference_range", true},
		{CategoryDemographics, "age_range", true},
		{CategoryDemographics, "age", false},
		{CategoryUnknown, "value", false},
	}
	for _, tt := range tests {
		if got := HasField(tt.category, tt.field); got != tt.want {
			t.Errorf("HasField(%s, %q) = %v, want %v", tt.category, tt.field, got, tt.want)
		}
	}
}

// Every alias must point at a field that is canonical in at least one
// category; a dangling alias can never be applied.
func TestAliasTargetsAreCanonical(t *testing.T) {
	for _, alias := range Aliases {
		found := false
		for _, c := range Categories {
			if HasField(c, alias.Target) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("alias %s -> %s targets no canonical field", alias.Source, alias.Target)
		}
	}
}

func TestCanonicalUnit(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"f", "°F"},
		{"F", "°F"},
		{"Fahrenheit", "°F"},
		{" c ", "°C"},
		{"LB", "lbs"},
		{"pound", "lbs"},
		{"kilogram", "kg"},
		{"kg", "kg"},
		{"centimeter", "cm"},
		{"inch", "in"},
		{"mmHg", "mmHg"}, // unrecognized passes through
		{"bpm", "bpm"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalUnit(tt.in); got != tt.want {
			t.Errorf("CanonicalUnit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
