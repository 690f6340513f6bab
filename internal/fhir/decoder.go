// Package fhir decodes FHIR R4 JSON bundles into the intermediate clinical
// record. Only the resource types the normalization engine consumes are
// extracted (Patient, Observation, MedicationRequest, Condition); anything
// else in the bundle is skipped. Absent nested structures resolve to absent
// values, never a decode failure.
package fhir

import (
	"encoding/json"
	"fmt"

	"github.com/mist/datasteward/internal/clinical"
)

// Decode parses a FHIR bundle from raw JSON. Structurally invalid JSON is
// the only fatal condition.
func Decode(data []byte) (*clinical.Record, error) {
	var bundle map[string]interface{}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("fhir: invalid bundle JSON: %w", err)
	}
	return DecodeBundle(bundle), nil
}

// DecodeBundle walks an already-unmarshalled bundle, dispatching each entry
// on its resourceType.
func DecodeBundle(bundle map[string]interface{}) *clinical.Record {
	rec := &clinical.Record{}

	entries, _ := bundle["entry"].([]interface{})
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		resource, ok := entry["resource"].(map[string]interface{})
		if !ok {
			continue
		}

		switch str(resource, "resourceType") {
		case "Patient":
			rec.Patient = decodePatient(resource)
		case "Observation":
			rec.Observations = append(rec.Observations, decodeObservation(resource))
		case "MedicationRequest":
			rec.Medications = append(rec.Medications, decodeMedicationRequest(resource))
		case "Condition":
			rec.Conditions = append(rec.Conditions, decodeCondition(resource))
		}
	}

	return rec
}

func decodePatient(resource map[string]interface{}) *clinical.Patient {
	p := &clinical.Patient{
		PatientID: field(resource, "id"),
		Gender:    field(resource, "gender"),
		BirthDate: field(resource, "birthDate"),
	}

	if addr := firstElem(resource, "address"); addr != nil {
		p.PostalCode = field(addr, "postalCode")
		if lines, ok := addr["line"].([]interface{}); ok && len(lines) > 0 {
			if line, ok := lines[0].(string); ok {
				p.Address = clinical.StrOrNil(line)
			}
		}
	}

	if name := firstElem(resource, "name"); name != nil {
		p.LastName = field(name, "family")
		if given, ok := name["given"].([]interface{}); ok {
			if len(given) > 0 {
				if g, ok := given[0].(string); ok {
					p.FirstName = clinical.StrOrNil(g)
				}
			}
			if len(given) > 1 {
				if g, ok := given[1].(string); ok {
					p.MiddleName = clinical.StrOrNil(g)
				}
			}
		}
	}

	return p
}

func decodeObservation(resource map[string]interface{}) clinical.Observation {
	obs := clinical.Observation{
		Timestamp: field(resource, "effectiveDateTime"),
		Status:    field(resource, "status"),
	}

	if coding := firstCoding(resource, "code"); coding != nil {
		obs.Code = field(coding, "code")
		obs.Name = field(coding, "display")
	}

	if vq, ok := resource["valueQuantity"].(map[string]interface{}); ok {
		if v, ok := vq["value"].(float64); ok {
			obs.Value = &v
		}
		obs.Unit = field(vq, "unit")
	}

	return obs
}

func decodeMedicationRequest(resource map[string]interface{}) clinical.Medication {
	med := clinical.Medication{}

	if coding := firstCoding(resource, "medicationCodeableConcept"); coding != nil {
		med.Name = field(coding, "display")
		med.Code = field(coding, "code")
	}

	if dosage := firstElem(resource, "dosageInstruction"); dosage != nil {
		med.Dosage = field(dosage, "text")
		if timing, ok := dosage["timing"].(map[string]interface{}); ok {
			if code, ok := timing["code"].(map[string]interface{}); ok {
				med.Frequency = field(code, "text")
			}
		}
	}

	return med
}

func decodeCondition(resource map[string]interface{}) clinical.Condition {
	cond := clinical.Condition{
		OnsetDate: field(resource, "onsetDateTime"),
	}

	if coding := firstCoding(resource, "code"); coding != nil {
		cond.Code = field(coding, "code")
		cond.Name = field(coding, "display")
	}

	if cs, ok := resource["clinicalStatus"].(map[string]interface{}); ok {
		cond.Status = field(cs, "text")
	}

	return cond
}

// str returns a string-typed member or "".
func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// field returns a string-typed member as *string, nil when absent or empty.
func field(m map[string]interface{}, key string) *string {
	return clinical.StrOrNil(str(m, key))
}

// firstElem returns the first object of an array-valued member.
func firstElem(m map[string]interface{}, key string) map[string]interface{} {
	arr, ok := m[key].([]interface{})
	if !ok || len(arr) == 0 {
		return nil
	}
	elem, _ := arr[0].(map[string]interface{})
	return elem
}

// firstCoding returns coding[0] of a CodeableConcept-valued member.
func firstCoding(m map[string]interface{}, key string) map[string]interface{} {
	cc, ok := m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	return firstElem(cc, "coding")
}
