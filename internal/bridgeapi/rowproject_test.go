package bridgeapi

import (
	"reflect"
	"testing"
)

func TestFilterColumnsKeepsOnlyVisible(t *testing.T) {
	row := map[string]any{"id": 1, "title": "hello", "secret": "shh"}
	got := filterColumns(row, []string{"id", "title"})
	want := map[string]any{"id": 1, "title": "hello"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterColumns() = %v, want %v", got, want)
	}
}

func TestFilterColumnsSkipsMissingKeys(t *testing.T) {
	row := map[string]any{"id": 1}
	got := filterColumns(row, []string{"id", "nonexistent"})
	want := map[string]any{"id": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterColumns() = %v, want %v", got, want)
	}
}

func TestFilterRowsAppliesToEachRow(t *testing.T) {
	rows := []map[string]any{
		{"id": 1, "secret": "a"},
		{"id": 2, "secret": "b"},
	}
	got := filterRows(rows, []string{"id"})
	want := []map[string]any{{"id": 1}, {"id": 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterRows() = %v, want %v", got, want)
	}
}

func TestFilterRowsPreservesOrderAndLength(t *testing.T) {
	rows := []map[string]any{{"a": 1}, {"a": 2}, {"a": 3}}
	got := filterRows(rows, []string{"a"})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, row := range got {
		if row["a"] != rows[i]["a"] {
			t.Errorf("row %d = %v, want %v", i, row, rows[i])
		}
	}
}
