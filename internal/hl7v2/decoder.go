// Package hl7v2 decodes HL7 v2.x messages into the intermediate clinical
// record. Delimiters are fixed per the HL7 default encoding: segment \r,
// field |, component ^, repetition ~, escape \, subcomponent &. MSH-2
// negotiation is not supported.
package hl7v2

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mist/datasteward/internal/clinical"
)

const (
	segmentDelimiter      = "\r"
	fieldDelimiter        = "|"
	componentDelimiter    = "^"
	repetitionDelimiter   = "~"
	escapeDelimiter       = "\\"
	subcomponentDelimiter = "&"
)

// Decode parses an HL7 v2 message into an intermediate clinical record.
// Recognized segments (MSH, PID, OBX, OBR) populate the typed record;
// everything else is retained verbatim under RawSegments. Segments with
// fewer fields than an accessor expects resolve to absent values, never an
// error: the only structural failure is an empty message.
func Decode(message string) (*clinical.Record, error) {
	// Tolerate \r\n and bare \n line endings on input; the canonical
	// segment delimiter is still \r.
	text := strings.ReplaceAll(message, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	rec := &clinical.Record{
		RawSegments: make(map[string][]string),
	}

	seen := false
	for _, segment := range strings.Split(text, segmentDelimiter) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		seen = true

		fields := strings.Split(segment, fieldDelimiter)
		segmentType := fields[0]

		switch segmentType {
		case "MSH":
			rec.MessageType = decodeMSH(fields)
		case "PID":
			rec.Patient = decodePID(fields)
		case "OBX":
			rec.Observations = append(rec.Observations, decodeOBX(fields))
		case "OBR":
			rec.Order = decodeOBR(fields)
		}

		rec.RawSegments[segmentType] = fields
	}

	if !seen {
		return nil, fmt.Errorf("hl7v2: message contains no segments")
	}
	return rec, nil
}

// field returns the nth field, or nil when the segment is too short or the
// field is empty.
func field(fields []string, n int) *string {
	if n >= len(fields) {
		return nil
	}
	return clinical.StrOrNil(fields[n])
}

// component splits the nth field on the component delimiter and returns the
// ith component, or nil when absent.
func component(fields []string, n, i int) *string {
	if n >= len(fields) {
		return nil
	}
	parts := strings.Split(fields[n], componentDelimiter)
	if i >= len(parts) {
		return nil
	}
	return clinical.StrOrNil(parts[i])
}

func decodeMSH(fields []string) *clinical.MessageHeader {
	return &clinical.MessageHeader{
		SendingApplication: field(fields, 2),
		SendingFacility:    field(fields, 3),
		MessageType:        field(fields, 8),
		MessageControlID:   field(fields, 9),
		Version:            field(fields, 11),
	}
}

func decodePID(fields []string) *clinical.Patient {
	p := &clinical.Patient{
		PatientID:  field(fields, 3),
		LastName:   component(fields, 5, 0),
		FirstName:  component(fields, 5, 1),
		MiddleName: component(fields, 5, 2),
		BirthDate:  field(fields, 7),
		Gender:     field(fields, 8),
		Address:    field(fields, 11),
		Phone:      field(fields, 13),
	}
	if p.Address != nil {
		p.PostalCode = clinical.StrOrNil(extractZIP(*p.Address))
	}
	return p
}

func decodeOBX(fields []string) clinical.Observation {
	obs := clinical.Observation{
		SetID:          field(fields, 1),
		ValueType:      field(fields, 2),
		Code:           component(fields, 3, 0),
		Name:           component(fields, 3, 1),
		RawValue:       field(fields, 5),
		Unit:           field(fields, 6),
		ReferenceRange: field(fields, 7),
		Status:         field(fields, 11),
		Timestamp:      field(fields, 14),
	}
	if obs.RawValue != nil {
		obs.Value = parseNumeric(*obs.RawValue)
	}
	return obs
}

func decodeOBR(fields []string) *clinical.Order {
	return &clinical.Order{
		SetID:               field(fields, 1),
		OrderID:             field(fields, 2),
		UniversalServiceID:  field(fields, 4),
		ObservationDateTime: field(fields, 7),
		OrderingProvider:    field(fields, 16),
	}
}

// parseNumeric extracts a float from an OBX value, stripping any non-numeric
// decoration (comparators, units accidentally embedded in the value field).
// Unparsable values yield nil.
func parseNumeric(raw string) *float64 {
	var sb strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			sb.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil {
		return nil
	}
	return &v
}

var zipPattern = regexp.MustCompile(`\b\d{5}\b`)

// extractZIP finds the first standalone 5-digit ZIP in an address, or ""
// when none exists.
func extractZIP(address string) string {
	return zipPattern.FindString(address)
}
