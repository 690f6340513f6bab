// Package mdf defines the Mist Data Format: the canonical, de-identified
// target schema that uploaded data is normalized into. The category field
// sets, alias table, and unit lexicon here are the wire contract relied on by
// export formatting and marketplace filtering; renaming a canonical field is
// a breaking change.
package mdf

import "strings"

// Category is one of the fixed MDF record kinds.
type Category string

const (
	CategoryVitals       Category = "vitals"
	CategoryLabResults   Category = "lab_results"
	CategoryMedications  Category = "medications"
	CategoryDiagnoses    Category = "diagnoses"
	CategoryProcedures   Category = "procedures"
	CategoryDemographics Category = "demographics"
	CategoryUnknown      Category = "unknown"
)

// Categories lists every real category in its fixed declaration order.
// Classifier tie-breaks resolve to the earliest entry, so the order is part
// of the contract.
var Categories = []Category{
	CategoryVitals,
	CategoryLabResults,
	CategoryMedications,
	CategoryDiagnoses,
	CategoryProcedures,
	CategoryDemographics,
}

// categoryFields maps each category to its ordered canonical field set.
var categoryFields = map[Category][]string{
	CategoryVitals:       {"timestamp", "vital_type", "value", "unit", "source"},
	CategoryLabResults:   {"timestamp", "test_name", "test_code", "value", "unit", "reference_range", "status"},
	CategoryMedications:  {"medication_name", "medication_code", "dosage", "frequency", "start_date", "end_date"},
	CategoryDiagnoses:    {"diagnosis_code", "diagnosis_name", "diagnosis_date", "status", "severity"},
	CategoryProcedures:   {"procedure_code", "procedure_name", "procedure_date", "provider", "location"},
	CategoryDemographics: {"age_range", "gender", "zip_code_prefix", "state", "ethnicity", "language"},
}

// Fields returns the ordered canonical field names for a category. Unknown
// categories have no fields.
func Fields(c Category) []string {
	return categoryFields[c]
}

// HasField reports whether field is canonical for the category.
func HasField(c Category, field string) bool {
	for _, f := range categoryFields[c] {
		if f == field {
			return true
		}
	}
	return false
}

// Alias maps a common source-field synonym to its canonical target.
type Alias struct {
	Source string
	Target string
}

// Aliases is the fixed alias table, applied by substring match against
// lower-cased source column names. Order matters: the first alias whose
// source appears in the column wins.
var Aliases = []Alias{
	// Timestamp variations
	{"date", "timestamp"},
	{"datetime", "timestamp"},
	{"time", "timestamp"},
	{"recorded_at", "timestamp"},
	{"measurement_date", "timestamp"},

	// Vital signs
	{"blood_pressure", "vital_type"},
	{"bp", "vital_type"},
	{"heart_rate", "vital_type"},
	{"hr", "vital_type"},
	{"temperature", "vital_type"},
	{"temp", "vital_type"},
	{"weight", "vital_type"},
	{"height", "vital_type"},

	// Lab results. Order matters: resolution takes the first alias whose
	// source appears in the column, so "test" wins over "test_result" for a
	// column named test_result.
	{"test", "test_name"},
	{"lab_test", "test_name"},
	{"test_result", "value"},
	{"result", "value"},
	{"loinc", "test_code"},

	// Medications
	{"drug", "medication_name"},
	{"medicine", "medication_name"},
	{"medication", "medication_name"},
	{"rxnorm", "medication_code"},
	{"dose", "dosage"},

	// Demographics
	{"age", "age_range"},
	{"sex", "gender"},
	{"zipcode", "zip_code_prefix"},
	{"zip", "zip_code_prefix"},
	{"race", "ethnicity"},
}

// unitLexicon canonicalizes measurement units for the vitals category.
var unitLexicon = map[string]string{
	"f":          "°F",
	"fahrenheit": "°F",
	"c":          "°C",
	"celsius":    "°C",
	"lb":         "lbs",
	"pound":      "lbs",
	"kg":         "kg",
	"kilogram":   "kg",
	"cm":         "cm",
	"centimeter": "cm",
	"in":         "in",
	"inch":       "in",
}

// CanonicalUnit returns the canonical spelling of a unit. Lookup is
// case-insensitive on the trimmed value; unrecognized units pass through
// unchanged.
func CanonicalUnit(unit string) string {
	if canon, ok := unitLexicon[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return canon
	}
	return unit
}
