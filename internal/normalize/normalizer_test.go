package normalize

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/mist/datasteward/internal/hipaa"
	"github.com/mist/datasteward/internal/mdf"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeCSVDemographics(t *testing.T) {
	data := []byte("patient_id,name,age,zip_code,gender\nP001,John Doe,42,62704,M\n")

	res, err := New().Normalize(data, FormatCSV)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if res.Metadata.Category != mdf.CategoryDemographics {
		t.Errorf("category = %s, want demographics", res.Metadata.Category)
	}
	if res.Metadata.TotalRecords != 1 || res.Metadata.NormalizedRecords != 1 {
		t.Errorf("record counts = %d/%d, want 1/1",
			res.Metadata.TotalRecords, res.Metadata.NormalizedRecords)
	}

	// patient_id and name self-map at 0.3; age and zip_code alias at 0.8;
	// gender is exact. avg(0.3,0.3,0.8,0.8,1.0) * 1.1 = 0.704.
	if math.Abs(res.Metadata.ConfidenceScore-0.704) > 1e-9 {
		t.Errorf("confidence = %v, want 0.704", res.Metadata.ConfidenceScore)
	}

	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}
	row := res.Rows[0]
	if row["patient_id"] != hipaa.RedactionToken {
		t.Errorf("patient_id = %v, want redaction token", row["patient_id"])
	}
	if row["name"] != hipaa.RedactionToken {
		t.Errorf("name = %v, want redaction token", row["name"])
	}
	if row["age_range"] != "36-45" {
		t.Errorf("age_range = %v, want 36-45", row["age_range"])
	}
	if row["zip_code_prefix"] != "627" {
		t.Errorf("zip_code_prefix = %v, want 627", row["zip_code_prefix"])
	}
	if row["gender"] != "M" {
		t.Errorf("gender = %v, want M", row["gender"])
	}
	for _, forbidden := range []string{"age", "zip_code"} {
		if _, ok := row[forbidden]; ok {
			t.Errorf("raw %s survived normalization", forbidden)
		}
	}
}

func TestNormalizeCSVVitalsAliases(t *testing.T) {
	data := []byte("Date,HR,BP,Temp\n2024-01-01,72,120/80,98.6\n")

	res, err := New().Normalize(data, FormatCSV)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Metadata.Category != mdf.CategoryVitals {
		t.Errorf("category = %s, want vitals", res.Metadata.Category)
	}

	wantMappings := []FieldMapping{
		{"Date", "timestamp", 0.8},
		{"HR", "vital_type", 0.8},
		{"BP", "vital_type", 0.8},
		{"Temp", "vital_type", 0.8},
	}
	if !reflect.DeepEqual(res.Metadata.FieldMappings, wantMappings) {
		t.Errorf("mappings = %v, want %v", res.Metadata.FieldMappings, wantMappings)
	}

	row := res.Rows[0]
	if row["timestamp"] != "2024-01-01T00:00:00Z" {
		t.Errorf("timestamp = %v", row["timestamp"])
	}
	for _, src := range []string{"Date", "HR", "BP", "Temp"} {
		if _, ok := row[src]; ok {
			t.Errorf("source column %s survived", src)
		}
	}
}

func TestNormalizeJSON(t *testing.T) {
	data := []byte(`[{"test_name": "Glucose", "value": 95, "unit": "mg/dL", "patient_id": "P1"}]`)

	res, err := New().Normalize(data, FormatJSON)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Metadata.Category != mdf.CategoryLabResults {
		t.Errorf("category = %s, want lab_results", res.Metadata.Category)
	}
	row := res.Rows[0]
	if row["test_name"] != "Glucose" {
		t.Errorf("test_name = %v", row["test_name"])
	}
	if row["value"] != 95.0 {
		t.Errorf("value = %v", row["value"])
	}
	if row["patient_id"] != hipaa.RedactionToken {
		t.Errorf("patient_id = %v, want redaction token", row["patient_id"])
	}
}

const hl7Sample = "MSH|^~\\&|APP|FAC|||20240101||ADT^A01|123|P|2.5\r" +
	"PID|1||12345||Doe^John^A||19800101|M|||123 Main St Springfield 62704\r" +
	"OBX|1|NM|8867-4^Heart Rate||72|bpm|60-100||||F|||20240101120000"

func TestNormalizeHL7(t *testing.T) {
	res, err := NewAt(fixedClock).Normalize([]byte(hl7Sample), FormatHL7)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if res.Metadata.Category != mdf.CategoryVitals {
		t.Errorf("category = %s, want vitals", res.Metadata.Category)
	}
	// Decoded records map identically; confidence caps at 1.
	if res.Metadata.ConfidenceScore != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Metadata.ConfidenceScore)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}

	row := res.Rows[0]
	want := map[string]interface{}{
		"timestamp":       "2024-01-01T12:00:00Z",
		"vital_type":      "Heart Rate",
		"value":           72.0,
		"unit":            "bpm",
		"patient_id":      hipaa.HashIdentifier("12345"),
		"gender":          "M",
		"birth_date":      "1980-01-01",
		"age_range":       "36-45",
		"zip_code_prefix": "627",
	}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("row = %v\nwant %v", row, want)
	}
}

const fhirSample = `{
  "resourceType": "Bundle",
  "entry": [
    {"resource": {
      "resourceType": "Patient",
      "id": "12345",
      "gender": "M",
      "birthDate": "1980-01-01",
      "address": [{"postalCode": "62704"}]
    }},
    {"resource": {
      "resourceType": "Observation",
      "status": "final",
      "effectiveDateTime": "2024-01-01T12:00:00Z",
      "code": {"coding": [{"code": "8867-4", "display": "Heart Rate"}]},
      "valueQuantity": {"value": 72, "unit": "bpm"}
    }}
  ]
}`

// The same clinical facts arriving over HL7 v2 and FHIR must normalize to
// the same de-identified values, hashed patient identifier included.
func TestNormalizeCrossProtocolConsistency(t *testing.T) {
	hl7Res, err := NewAt(fixedClock).Normalize([]byte(hl7Sample), FormatHL7)
	if err != nil {
		t.Fatalf("Normalize hl7: %v", err)
	}
	fhirRes, err := NewAt(fixedClock).Normalize([]byte(fhirSample), FormatFHIR)
	if err != nil {
		t.Fatalf("Normalize fhir: %v", err)
	}

	if len(fhirRes.Rows) != 1 {
		t.Fatalf("fhir rows = %d, want 1", len(fhirRes.Rows))
	}
	hl7Row, fhirRow := hl7Res.Rows[0], fhirRes.Rows[0]

	for _, f := range []string{
		"timestamp", "vital_type", "value", "unit",
		"patient_id", "gender", "birth_date", "age_range", "zip_code_prefix",
	} {
		if !reflect.DeepEqual(hl7Row[f], fhirRow[f]) {
			t.Errorf("%s differs across protocols: hl7=%v fhir=%v", f, hl7Row[f], fhirRow[f])
		}
	}
	if hl7Row["patient_id"] != hipaa.HashIdentifier("12345") {
		t.Errorf("patient_id = %v, want deterministic hash", hl7Row["patient_id"])
	}
	if hl7Res.Metadata.Category != fhirRes.Metadata.Category {
		t.Errorf("categories differ: %s vs %s", hl7Res.Metadata.Category, fhirRes.Metadata.Category)
	}
}

func TestNormalizePatientOnlyRecord(t *testing.T) {
	data := []byte(`{"entry": [{"resource": {
		"resourceType": "Patient",
		"id": "p9",
		"gender": "female",
		"birthDate": "1990-02-03",
		"address": [{"postalCode": "10001"}]
	}}]}`)

	res, err := NewAt(fixedClock).Normalize(data, FormatFHIR)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Metadata.Category != mdf.CategoryDemographics {
		t.Errorf("category = %s, want demographics", res.Metadata.Category)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}
	row := res.Rows[0]
	if row["patient_id"] != hipaa.HashIdentifier("p9") {
		t.Errorf("patient_id = %v, want hash", row["patient_id"])
	}
	if row["age_range"] != "26-35" {
		t.Errorf("age_range = %v, want 26-35", row["age_range"])
	}
	if row["zip_code_prefix"] != "100" {
		t.Errorf("zip_code_prefix = %v, want 100", row["zip_code_prefix"])
	}
	if row["birth_date"] != "1990-01-01" {
		t.Errorf("birth_date = %v, want year-only", row["birth_date"])
	}
}

func TestNormalizeUnsupportedFormat(t *testing.T) {
	_, err := New().Normalize([]byte("x"), Format("xml"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	var nerr *Error
	if !errors.As(err, &nerr) {
		t.Fatal("error is not a *Error")
	}
	if nerr.Format != Format("xml") {
		t.Errorf("error format = %q", nerr.Format)
	}
}

func TestNormalizeMalformedInput(t *testing.T) {
	cases := []struct {
		format Format
		data   []byte
	}{
		{FormatJSON, []byte("{oops")},
		{FormatJSON, []byte("[]")},
		{FormatCSV, nil},
		{FormatHL7, []byte("")},
		{FormatFHIR, []byte("not json")},
	}
	for _, c := range cases {
		_, err := New().Normalize(c.data, c.format)
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Normalize(%s, %q): err = %v, want ErrMalformedInput", c.format, c.data, err)
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	data := []byte("patient_id,age,zip_code,gender\nP001,42,62704,M\nP002,71,10001,F\n")
	first, err := New().Normalize(data, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		got, err := New().Normalize(data, FormatCSV)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, got, first)
		}
	}
}

func TestNormalizeConfidenceBounds(t *testing.T) {
	inputs := []struct {
		format Format
		data   []byte
	}{
		{FormatCSV, []byte("test_name,value,unit\nGlucose,95,mg/dL\n")},
		{FormatCSV, []byte("foo,bar\n1,2\n")},
		{FormatJSON, []byte(`[{"drug": "aspirin", "dose": "81mg"}]`)},
		{FormatHL7, []byte(hl7Sample)},
	}
	for _, in := range inputs {
		res, err := New().Normalize(in.data, in.format)
		if err != nil {
			t.Fatalf("Normalize(%s): %v", in.format, err)
		}
		score := res.Metadata.ConfidenceScore
		if score < 0 || score > 1 {
			t.Errorf("Normalize(%s): confidence %v out of [0,1]", in.format, score)
		}
	}
}

// The category bonus never pushes an unknown-category score up.
func TestScorerAggregate(t *testing.T) {
	s := &scorer{}
	if got := s.aggregate(mdf.CategoryVitals); got != 0 {
		t.Errorf("empty scorer aggregate = %v, want 0", got)
	}

	s = &scorer{}
	s.add(0.5)
	s.add(0.7)
	if got := s.aggregate(mdf.CategoryUnknown); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("unknown aggregate = %v, want 0.6", got)
	}
	if got := s.aggregate(mdf.CategoryVitals); math.Abs(got-0.66) > 1e-9 {
		t.Errorf("vitals aggregate = %v, want 0.66", got)
	}

	s = &scorer{}
	s.add(1.0)
	s.add(1.0)
	if got := s.aggregate(mdf.CategoryVitals); got != 1.0 {
		t.Errorf("aggregate = %v, want cap at 1.0", got)
	}
}
