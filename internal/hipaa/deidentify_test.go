package hipaa

import (
	"reflect"
	"strconv"
	"testing"
	"time"
)

func TestAgeToRangeBuckets(t *testing.T) {
	tests := []struct {
		age  interface{}
		want string
	}{
		{0, "0-17"},
		{17, "0-17"},
		{18, "18-25"},
		{25, "18-25"},
		{26, "26-35"},
		{35, "26-35"},
		{36, "36-45"},
		{45, "36-45"},
		{46, "46-55"},
		{55, "46-55"},
		{56, "56-65"},
		{65, "56-65"},
		{66, "66-75"},
		{75, "66-75"},
		{76, "76-89"},
		{89, "76-89"},
		{90, "90+"},
		{130, "90+"},
		{float64(42), "36-45"},
		{"42", "36-45"},
		{"not a number", "unknown"},
		{nil, "unknown"},
		{struct{}{}, "unknown"},
	}
	for _, tt := range tests {
		if got := AgeToRange(tt.age); got != tt.want {
			t.Errorf("AgeToRange(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

// Every integer age in [0, 130] must land in exactly one of the nine fixed
// buckets; the function is total.
func TestAgeToRangeTotality(t *testing.T) {
	buckets := map[string]bool{
		"0-17": true, "18-25": true, "26-35": true, "36-45": true,
		"46-55": true, "56-65": true, "66-75": true, "76-89": true, "90+": true,
	}
	for age := 0; age <= 130; age++ {
		got := AgeToRange(age)
		if !buckets[got] {
			t.Fatalf("AgeToRange(%d) = %q, not a fixed bucket", age, got)
		}
	}
}

func TestAgeRangeFromBirthDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		birthDate string
		want      string
	}{
		{"19800101", "36-45"},    // HL7 format
		{"1980-01-01", "36-45"},  // ISO format
		{"2020-05-05", "0-17"},
		{"1930-01-01", "90+"},
		{"", "unknown"},
		{"abc", "unknown"},
		{"19", "unknown"},
	}
	for _, tt := range tests {
		if got := AgeRangeFromBirthDate(tt.birthDate, now); got != tt.want {
			t.Errorf("AgeRangeFromBirthDate(%q) = %q, want %q", tt.birthDate, got, tt.want)
		}
	}
}

func TestGeneralizeBirthDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1980-05-21", "1980-01-01"},
		{"19800521", "1980-01-01"},
		{"1980-01-01", "1980-01-01"}, // fixed point
		{"", ""},
		{"19", "19"},
	}
	for _, tt := range tests {
		if got := GeneralizeBirthDate(tt.in); got != tt.want {
			t.Errorf("GeneralizeBirthDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestZIPPrefix(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"62704", "627"},
		{"627", "627"},
		{"62", "62"},
		{62704, "627"},
		{"62704-1234", "627"},
		{nil, ""},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := ZIPPrefix(tt.in); got != tt.want {
			t.Errorf("ZIPPrefix(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashIdentifier(t *testing.T) {
	h := HashIdentifier("12345")
	if len(h) != 16 {
		t.Fatalf("hash length = %d, want 16", len(h))
	}
	if h == "12345" {
		t.Fatal("hash must not equal the raw identifier")
	}
	if h != HashIdentifier("12345") {
		t.Fatal("hash must be deterministic")
	}
	if h == HashIdentifier("12346") {
		t.Fatal("distinct identifiers must not collide trivially")
	}
	if _, err := strconv.ParseUint(h, 16, 64); err != nil {
		t.Fatalf("hash %q is not hex", h)
	}
}

func TestDeidentifyRedactsDirectIdentifiers(t *testing.T) {
	in := map[string]interface{}{
		"first_name": "John",
		"last_name":  "Doe",
		"ssn":        "111-22-3333",
		"phone":      "555-0100",
		"email":      "john@example.com",
		"mrn":        "MRN-1",
		"patient_id": "12345",
		"birth_date": "1980-05-21",
		"zip_code":   "62704",
		"age":        42,
		"value":      98.6,
	}

	got := Deidentify(in)

	for _, f := range []string{"first_name", "last_name", "ssn", "phone", "email", "mrn", "patient_id"} {
		if got[f] != RedactionToken {
			t.Errorf("%s = %v, want redaction token", f, got[f])
		}
	}
	if got["birth_date"] != "1980-01-01" {
		t.Errorf("birth_date = %v, want year-only", got["birth_date"])
	}
	if got["zip_code_prefix"] != "627" {
		t.Errorf("zip_code_prefix = %v, want 627", got["zip_code_prefix"])
	}
	if _, ok := got["zip_code"]; ok {
		t.Error("raw zip_code must be dropped")
	}
	if got["age_range"] != "36-45" {
		t.Errorf("age_range = %v, want 36-45", got["age_range"])
	}
	if _, ok := got["age"]; ok {
		t.Error("raw age must be dropped")
	}
	if got["value"] != 98.6 {
		t.Errorf("non-identifier value changed: %v", got["value"])
	}

	// Input is untouched.
	if in["first_name"] != "John" {
		t.Error("Deidentify must not mutate its input")
	}
}

func TestDeidentifyDropsEmptyZIP(t *testing.T) {
	for _, zip := range []interface{}{nil, "", "  "} {
		got := Deidentify(map[string]interface{}{"zip_code": zip, "age": 30})
		if _, ok := got["zip_code"]; ok {
			t.Error("raw zip_code must be dropped")
		}
		if v, ok := got["zip_code_prefix"]; ok {
			t.Errorf("zip_code_prefix = %v, want absent for empty zip %v", v, zip)
		}
	}
}

// Redaction is idempotent: a second pass over already-clean data is a no-op.
func TestDeidentifyIdempotent(t *testing.T) {
	in := map[string]interface{}{
		"name":       "Jane Doe",
		"ssn":        "111-22-3333",
		"birth_date": "1975-03-04",
		"age":        50,
	}
	once := Deidentify(in)
	twice := Deidentify(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed output:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestDeidentifyLinkedHashesLinkageFields(t *testing.T) {
	in := map[string]interface{}{
		"patient_id": "12345",
		"mrn":        "MRN-1",
	}
	got := DeidentifyLinked(in, map[string]bool{"patient_id": true})

	if got["patient_id"] != HashIdentifier("12345") {
		t.Errorf("patient_id = %v, want hash", got["patient_id"])
	}
	if got["mrn"] != RedactionToken {
		t.Errorf("mrn = %v, want redaction token", got["mrn"])
	}
}
