package normalize

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RawTable is the loosely-typed tabular form every input is reduced to
// before mapping: an ordered column list plus rows of column→scalar. It is
// built once from the input and discarded after normalization.
type RawTable struct {
	Columns []string
	Rows    []map[string]interface{}
}

// tableFromCSV parses CSV bytes into a RawTable. The first record is the
// header. Numeric-looking cells are converted to float64 so downstream
// transformations see the same scalar types as JSON input.
func tableFromCSV(data []byte) (*RawTable, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv input is empty")
	}

	header := records[0]
	t := &RawTable{Columns: header}

	for _, rec := range records[1:] {
		row := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i >= len(rec) {
				continue
			}
			row[col] = csvScalar(rec[i])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// csvScalar converts a CSV cell to the loosest matching scalar: empty cells
// become nil, numbers become float64, everything else stays a string.
func csvScalar(cell string) interface{} {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return trimmed
}

// tableFromJSON parses a JSON array of objects (or a single object) into a
// RawTable. Column order is first-seen across rows; keys first seen within
// the same row are ordered alphabetically since JSON object order is not
// observable after decoding.
func tableFromJSON(data []byte) (*RawTable, error) {
	var anyVal interface{}
	if err := json.Unmarshal(data, &anyVal); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	var objects []map[string]interface{}
	switch v := anyVal.(type) {
	case []interface{}:
		for _, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("json array elements must be objects")
			}
			objects = append(objects, obj)
		}
	case map[string]interface{}:
		objects = []map[string]interface{}{v}
	default:
		return nil, fmt.Errorf("unsupported json structure")
	}

	if len(objects) == 0 {
		return nil, fmt.Errorf("json input is empty")
	}

	t := &RawTable{}
	seen := make(map[string]bool)
	for _, obj := range objects {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			if !seen[k] {
				keys = append(keys, k)
				seen[k] = true
			}
		}
		sort.Strings(keys)
		t.Columns = append(t.Columns, keys...)
		t.Rows = append(t.Rows, obj)
	}
	return t, nil
}
