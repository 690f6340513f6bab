// Package normalize is the engine that converts uncontrolled source schemas
// (UDT) into the canonical Mist Data Format: category detection, fuzzy field
// mapping with per-field confidence, category-specific value transformation,
// and HIPAA Safe Harbor de-identification.
//
// A normalization run is a pure, synchronous computation over an in-memory
// copy of one input. Runs hold no shared mutable state, so independent
// datasets may be normalized concurrently.
package normalize

import (
	"time"

	"github.com/mist/datasteward/internal/clinical"
	"github.com/mist/datasteward/internal/fhir"
	"github.com/mist/datasteward/internal/hipaa"
	"github.com/mist/datasteward/internal/hl7v2"
	"github.com/mist/datasteward/internal/mdf"
)

// Format is the declared source format of an input.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHL7  Format = "hl7"
	FormatFHIR Format = "fhir"
)

// Metadata describes how a dataset was normalized.
type Metadata struct {
	Category          mdf.Category   `json:"category"`
	FieldMappings     []FieldMapping `json:"field_mappings"`
	ConfidenceScore   float64        `json:"confidence_score"`
	TotalRecords      int            `json:"total_records"`
	NormalizedRecords int            `json:"normalized_records"`
}

// Result is the output of one normalization run: the de-identified rows and
// their metadata.
type Result struct {
	Rows     []map[string]interface{} `json:"rows"`
	Metadata Metadata                 `json:"metadata"`
}

// Engine orchestrates decode, classification, mapping, transformation, and
// confidence aggregation. It is stateless between calls and safe for
// concurrent use.
type Engine struct {
	now func() time.Time
}

// New returns an Engine using the wall clock for age derivation.
func New() *Engine {
	return &Engine{now: time.Now}
}

// NewAt returns an Engine with a fixed clock. Age-range derivation from
// birth dates depends on the current year, so tests pin it.
func NewAt(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Normalize converts one raw input of the declared format into normalized,
// de-identified rows plus metadata. Structural failures (unknown format,
// unparsable payload, empty input) abort the whole run with a typed
// *Error; value-level parse problems never do.
func (e *Engine) Normalize(data []byte, format Format) (*Result, error) {
	switch format {
	case FormatCSV:
		table, err := tableFromCSV(data)
		if err != nil {
			return nil, failure(format, "parse", ErrMalformedInput)
		}
		return e.normalizeTable(table, transformOptions{}), nil

	case FormatJSON:
		table, err := tableFromJSON(data)
		if err != nil {
			return nil, failure(format, "parse", ErrMalformedInput)
		}
		return e.normalizeTable(table, transformOptions{}), nil

	case FormatHL7:
		rec, err := hl7v2.Decode(string(data))
		if err != nil {
			return nil, failure(format, "decode", ErrMalformedInput)
		}
		return e.normalizeRecord(rec), nil

	case FormatFHIR:
		rec, err := fhir.Decode(data)
		if err != nil {
			return nil, failure(format, "decode", ErrMalformedInput)
		}
		return e.normalizeRecord(rec), nil

	default:
		return nil, failure(format, "dispatch", ErrUnsupportedFormat)
	}
}

// normalizeTable runs the classify → map → transform → aggregate pipeline
// over a raw table. Each invocation builds its own confidence scope.
func (e *Engine) normalizeTable(table *RawTable, opts transformOptions) *Result {
	category := classifyColumns(table.Columns)
	mappings := mapFields(table.Columns, category)
	rows := transformRows(table.Rows, mappings, category, opts)

	sc := &scorer{}
	for _, m := range mappings {
		sc.add(m.Confidence)
	}

	return &Result{
		Rows: rows,
		Metadata: Metadata{
			Category:          category,
			FieldMappings:     mappings,
			ConfidenceScore:   sc.aggregate(category),
			TotalRecords:      len(table.Rows),
			NormalizedRecords: len(rows),
		},
	}
}

// normalizeRecord flattens a decoded intermediate clinical record into a
// raw table and runs it through the same transform and de-identification
// stages as tabular input, so both protocols share one set of bucketing and
// redaction rules. Decoders emit canonical field names by construction, so
// the fuzzy mapper is bypassed in favor of identity mappings; running the
// alias table here would mis-map decoded demographics (birth_date contains
// "date" and would collide with timestamp). Patient identifiers from
// protocol sources are hashed, not redacted, to keep records linkable.
func (e *Engine) normalizeRecord(rec *clinical.Record) *Result {
	table := e.flattenRecord(rec)
	category := classifyColumns(table.Columns)
	mappings := identityMappings(table.Columns)
	rows := transformRows(table.Rows, mappings, category, transformOptions{
		linkageFields: map[string]bool{"patient_id": true},
	})

	sc := &scorer{}
	for _, m := range mappings {
		sc.add(m.Confidence)
	}

	return &Result{
		Rows: rows,
		Metadata: Metadata{
			Category:          category,
			FieldMappings:     mappings,
			ConfidenceScore:   sc.aggregate(category),
			TotalRecords:      len(table.Rows),
			NormalizedRecords: len(rows),
		},
	}
}

// identityMappings maps every decoded column to itself at full confidence.
func identityMappings(columns []string) []FieldMapping {
	mappings := make([]FieldMapping, 0, len(columns))
	for _, col := range columns {
		mappings = append(mappings, FieldMapping{col, col, confidenceExact})
	}
	return mappings
}

// recordColumns is the fixed column order for flattened protocol records.
var recordColumns = []string{
	"timestamp", "vital_type", "test_name", "test_code", "value", "unit",
	"reference_range", "status",
	"medication_name", "medication_code", "dosage", "frequency",
	"diagnosis_code", "diagnosis_name", "diagnosis_date",
	"patient_id", "gender", "birth_date", "age_range", "zip_code_prefix",
}

// flattenRecord turns a decoded record into one row per clinical item, each
// carrying the patient's demographic context. A record with no clinical
// items but a patient still yields a single demographics row.
func (e *Engine) flattenRecord(rec *clinical.Record) *RawTable {
	demo := e.demographicContext(rec.Patient)

	seen := make(map[string]bool)
	var columns []string
	addColumns := func(row map[string]interface{}) {
		for _, c := range recordColumns {
			if _, ok := row[c]; ok && !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}

	var rows []map[string]interface{}
	addRow := func(row map[string]interface{}) {
		for k, v := range demo {
			row[k] = v
		}
		addColumns(row)
		rows = append(rows, row)
	}

	for _, obs := range rec.Observations {
		row := map[string]interface{}{}
		setIf(row, "timestamp", obs.Timestamp)
		setNumIf(row, "value", obs.Value)
		setIf(row, "unit", obs.Unit)
		if clinical.IsVital(obs.Name) {
			setIf(row, "vital_type", obs.Name)
		} else {
			setIf(row, "test_name", obs.Name)
			setIf(row, "test_code", obs.Code)
			setIf(row, "reference_range", obs.ReferenceRange)
			setIf(row, "status", obs.Status)
		}
		addRow(row)
	}

	for _, med := range rec.Medications {
		row := map[string]interface{}{}
		setIf(row, "medication_name", med.Name)
		setIf(row, "medication_code", med.Code)
		setIf(row, "dosage", med.Dosage)
		setIf(row, "frequency", med.Frequency)
		addRow(row)
	}

	for _, cond := range rec.Conditions {
		row := map[string]interface{}{}
		setIf(row, "diagnosis_code", cond.Code)
		setIf(row, "diagnosis_name", cond.Name)
		setIf(row, "diagnosis_date", cond.OnsetDate)
		setIf(row, "status", cond.Status)
		addRow(row)
	}

	if len(rows) == 0 && rec.Patient != nil {
		addRow(map[string]interface{}{})
	}

	return &RawTable{Columns: columns, Rows: rows}
}

// demographicContext derives the de-identifiable demographic fields shared
// by every row of a protocol record. The patient id stays raw here; hashing
// happens in the transform stage.
func (e *Engine) demographicContext(p *clinical.Patient) map[string]interface{} {
	if p == nil {
		return nil
	}
	ctx := map[string]interface{}{}
	setIf(ctx, "patient_id", p.PatientID)
	setIf(ctx, "gender", p.Gender)
	setIf(ctx, "birth_date", p.BirthDate)
	setIf(ctx, "zip_code_prefix", p.PostalCode)
	if p.BirthDate != nil {
		ctx["age_range"] = hipaa.AgeRangeFromBirthDate(*p.BirthDate, e.now())
	}
	return ctx
}

func setIf(row map[string]interface{}, key string, v *string) {
	if v != nil {
		row[key] = *v
	}
}

func setNumIf(row map[string]interface{}, key string, v *float64) {
	if v != nil {
		row[key] = *v
	}
}
