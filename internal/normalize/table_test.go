package normalize

import (
	"reflect"
	"testing"
)

func TestTableFromCSV(t *testing.T) {
	data := []byte("test_name,value,unit\nGlucose,95,mg/dL\nSodium,,mmol/L\n")
	table, err := tableFromCSV(data)
	if err != nil {
		t.Fatalf("tableFromCSV: %v", err)
	}

	wantColumns := []string{"test_name", "value", "unit"}
	if !reflect.DeepEqual(table.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", table.Columns, wantColumns)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if table.Rows[0]["test_name"] != "Glucose" {
		t.Errorf("test_name = %v", table.Rows[0]["test_name"])
	}
	// Numeric cells become float64, like JSON numbers.
	if table.Rows[0]["value"] != 95.0 {
		t.Errorf("value = %v (%T), want float64 95", table.Rows[0]["value"], table.Rows[0]["value"])
	}
	// Empty cells become nil.
	if table.Rows[1]["value"] != nil {
		t.Errorf("empty cell = %v, want nil", table.Rows[1]["value"])
	}
}

func TestTableFromCSVHeaderOnly(t *testing.T) {
	table, err := tableFromCSV([]byte("a,b,c\n"))
	if err != nil {
		t.Fatalf("tableFromCSV: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("got %d rows, want 0", len(table.Rows))
	}
}

func TestTableFromCSVEmpty(t *testing.T) {
	if _, err := tableFromCSV(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestTableFromJSONArray(t *testing.T) {
	data := []byte(`[
		{"test_name": "Glucose", "value": 95},
		{"test_name": "Sodium", "value": 140, "unit": "mmol/L"}
	]`)
	table, err := tableFromJSON(data)
	if err != nil {
		t.Fatalf("tableFromJSON: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	// Columns are first-seen across rows; late-appearing keys append.
	wantColumns := []string{"test_name", "value", "unit"}
	if !reflect.DeepEqual(table.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", table.Columns, wantColumns)
	}
	if table.Rows[0]["value"] != 95.0 {
		t.Errorf("value = %v (%T)", table.Rows[0]["value"], table.Rows[0]["value"])
	}
}

func TestTableFromJSONSingleObject(t *testing.T) {
	table, err := tableFromJSON([]byte(`{"age": 42, "gender": "M"}`))
	if err != nil {
		t.Fatalf("tableFromJSON: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(table.Rows))
	}
	// Keys first seen together order alphabetically.
	wantColumns := []string{"age", "gender"}
	if !reflect.DeepEqual(table.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", table.Columns, wantColumns)
	}
}

func TestTableFromJSONRejectsBadShapes(t *testing.T) {
	bad := [][]byte{
		[]byte(`{invalid`),
		[]byte(`[1, 2, 3]`),
		[]byte(`"scalar"`),
		[]byte(`[]`),
	}
	for _, data := range bad {
		if _, err := tableFromJSON(data); err == nil {
			t.Errorf("tableFromJSON(%s): expected error", data)
		}
	}
}
