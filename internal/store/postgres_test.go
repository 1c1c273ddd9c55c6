package store

import "testing"

func TestNullIfEmpty(t *testing.T) {
    if nullIfEmpty("") != nil { t.Fatal("empty string should map to NULL") }
    if nullIfEmpty("x") != "x" { t.Fatal("non-empty string should pass through") }
}

func TestFiltersJSON(t *testing.T) {
    if string(filtersJSON(nil).([]byte)) != "[]" { t.Fatal("nil filters should encode as []") }
    if string(filtersJSON([]map[string]any{}).([]byte)) != "[]" { t.Fatal("empty filters should encode as []") }
    b := filtersJSON([]map[string]any{{"field": "type", "eq": "CALL"}}).([]byte)
    if len(b) == 0 || b[0] != '[' { t.Fatalf("unexpected encoding: %s", b) }
}
