// Package clinical defines the intermediate clinical record produced by the
// protocol decoders (HL7 v2, FHIR) and consumed by the normalization engine.
// Fields that may be absent in the source are pointers; a missing field is
// nil, never a decode failure.
package clinical

import "strings"

// Record is the loosely-typed intermediate representation shared by all
// protocol decoders. It still carries raw identifiers: hashing and redaction
// happen later, in the de-identification stage.
type Record struct {
	MessageType  *MessageHeader
	Patient      *Patient
	Order        *Order
	Observations []Observation
	Medications  []Medication
	Conditions   []Condition

	// RawSegments retains unrecognized wire segments keyed by segment type
	// for traceability. Decoders that have no segment concept leave it nil.
	RawSegments map[string][]string
}

// MessageHeader holds transport-level metadata (HL7 MSH).
type MessageHeader struct {
	SendingApplication *string
	SendingFacility    *string
	MessageType        *string
	MessageControlID   *string
	Version            *string
}

// Patient holds raw (pre-hash) patient identity and demographics.
type Patient struct {
	PatientID  *string
	LastName   *string
	FirstName  *string
	MiddleName *string
	BirthDate  *string
	Gender     *string
	Address    *string
	Phone      *string
	PostalCode *string
}

// Order holds an order/request entry (HL7 OBR).
type Order struct {
	SetID               *string
	OrderID             *string
	UniversalServiceID  *string
	ObservationDateTime *string
	OrderingProvider    *string
}

// Observation is a single measurement or lab result.
type Observation struct {
	SetID          *string
	ValueType      *string
	Code           *string
	Name           *string
	Value          *float64
	RawValue       *string
	Unit           *string
	ReferenceRange *string
	Status         *string
	Timestamp      *string
}

// Medication is a prescribed or requested medication.
type Medication struct {
	Name      *string
	Code      *string
	Dosage    *string
	Frequency *string
	StartDate *string
	EndDate   *string
}

// Condition is a diagnosis entry.
type Condition struct {
	Code      *string
	Name      *string
	OnsetDate *string
	Status    *string
}

// vitalKeywords is the fixed lexicon used to split observations into vitals
// and lab results. Matching is case-insensitive substring, identical for
// every source protocol.
var vitalKeywords = []string{
	"blood pressure", "heart rate", "temperature", "respiratory rate",
	"oxygen saturation", "weight", "height", "bmi",
}

// IsVital reports whether an observation name describes a vital sign.
// A nil or empty name is never a vital.
func IsVital(name *string) bool {
	if name == nil || *name == "" {
		return false
	}
	lower := strings.ToLower(*name)
	for _, kw := range vitalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Str returns a pointer to s. Convenience for building records.
func Str(s string) *string { return &s }

// StrOrNil returns nil for an empty string, otherwise a pointer to s.
// Decoders use it so absent wire fields become nil rather than "".
func StrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
