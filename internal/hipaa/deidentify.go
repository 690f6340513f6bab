// Package hipaa implements HIPAA Safe Harbor de-identification
// (45 CFR 164.514(b)(2)): direct identifiers are replaced with a fixed
// redaction token, dates generalize to year, ZIP codes truncate to their
// 3-digit prefix, and ages collapse into fixed ranges. Identifiers needed
// for cross-dataset linkage are one-way hashed so no reverse mapping ever
// has to be stored.
//
// Redaction and generalization are stable under re-application: a redaction
// token, a year-only birth date, or an age bucket passes through unchanged.
// Linkage hashing is the exception and is applied once per record, when the
// raw identifier is still present.
package hipaa

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RedactionToken replaces the value of any direct-identifier field.
const RedactionToken = "[REDACTED]"

// directIdentifierFields lists the field names whose values are always
// redacted outright. These cover the Safe Harbor identifier classes that
// have no useful generalized form (names, SSN, phone, email, MRN and other
// account numbers, raw patient identifiers).
var directIdentifierFields = []string{
	"name", "first_name", "last_name", "middle_name",
	"ssn", "phone", "email", "mrn", "patient_id",
}

// Deidentify applies Safe Harbor redaction and generalization to a record.
// The input map is not modified; a cleaned copy is returned.
func Deidentify(record map[string]interface{}) map[string]interface{} {
	return DeidentifyLinked(record, nil)
}

// DeidentifyLinked behaves like Deidentify but one-way hashes the fields in
// linkage instead of redacting them, preserving cross-dataset linkability
// without any stored reverse mapping. Values already equal to the redaction
// token are left untouched so repeated application is stable.
func DeidentifyLinked(record map[string]interface{}, linkage map[string]bool) map[string]interface{} {
	clean := make(map[string]interface{}, len(record))
	for k, v := range record {
		clean[k] = v
	}

	for _, f := range directIdentifierFields {
		v, ok := clean[f]
		if !ok {
			continue
		}
		if linkage[f] {
			if s, ok := v.(string); ok && s != RedactionToken {
				clean[f] = HashIdentifier(s)
			}
			continue
		}
		clean[f] = RedactionToken
	}

	if bd, ok := clean["birth_date"].(string); ok {
		clean["birth_date"] = GeneralizeBirthDate(bd)
	}

	if zip, ok := clean["zip_code"]; ok {
		delete(clean, "zip_code")
		if prefix := ZIPPrefix(zip); prefix != "" {
			clean["zip_code_prefix"] = prefix
		}
	}

	if age, ok := clean["age"]; ok {
		clean["age_range"] = AgeToRange(age)
		delete(clean, "age")
	}

	return clean
}

// AgeToRange buckets an age into the fixed 9-step Safe Harbor ladder.
// Non-numeric or missing ages map to "unknown"; the function is total and
// never fails.
func AgeToRange(age interface{}) string {
	years, ok := toInt(age)
	if !ok {
		return "unknown"
	}
	switch {
	case years < 18:
		return "0-17"
	case years < 26:
		return "18-25"
	case years < 36:
		return "26-35"
	case years < 46:
		return "36-45"
	case years < 56:
		return "46-55"
	case years < 66:
		return "56-65"
	case years < 76:
		return "66-75"
	case years < 90:
		return "76-89"
	default:
		return "90+"
	}
}

// AgeRangeFromBirthDate derives the age bucket from a birth date string as
// of now. Both HL7 (YYYYMMDD) and ISO (YYYY-MM-DD) dates are accepted since
// only the leading year is used. Unparsable input yields "unknown".
func AgeRangeFromBirthDate(birthDate string, now time.Time) string {
	if len(birthDate) < 4 {
		return "unknown"
	}
	year, err := strconv.Atoi(birthDate[:4])
	if err != nil {
		return "unknown"
	}
	return AgeToRange(now.Year() - year)
}

// GeneralizeBirthDate reduces a birth date to year precision, forcing the
// month and day to 01-01. Already-generalized dates are fixed points.
func GeneralizeBirthDate(birthDate string) string {
	if len(birthDate) < 4 {
		return birthDate
	}
	return birthDate[:4] + "-01-01"
}

// ZIPPrefix truncates a ZIP code to its first 3 characters, string-wise,
// regardless of original length. A nil or blank value yields "" so callers
// can drop the field instead of emitting a formatted nil.
func ZIPPrefix(zip interface{}) string {
	if zip == nil {
		return ""
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", zip))
	if len(s) > 3 {
		return s[:3]
	}
	return s
}

// HashIdentifier one-way hashes a patient identifier for cross-dataset
// linkage: SHA-256, hex, truncated to 16 characters.
func HashIdentifier(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:16]
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}
