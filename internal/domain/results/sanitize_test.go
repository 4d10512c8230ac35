package results

import (
	"reflect"
	"testing"
)

func TestSanitize_DropsEverything(t *testing.T) {
	in := map[string]any{
		"a.b": 1,
		"c":   "",
		"d":   map[string]any{"e": []any{}},
	}
	got := Sanitize(in)
	if !reflect.DeepEqual(got, map[string]any{}) {
		t.Errorf("expected empty object, got %#v", got)
	}
}

func TestSanitize_IllegalKeys(t *testing.T) {
	in := map[string]any{}
	for _, k := range []string{"a.b", "a$b", "a#b", "a[b", "a]b", "a/b"} {
		in[k] = "x"
	}
	in["CBC::Hemoglobin"] = "x"

	got := Sanitize(in).(map[string]any)
	if len(got) != 1 || got["CBC::Hemoglobin"] != "x" {
		t.Errorf("unexpected result %#v", got)
	}
}

func TestSanitize_Recursive(t *testing.T) {
	in := map[string]any{
		"name":  "Mr. Rohit Sharma",
		"flag":  false,
		"count": float64(0),
		"tests": []any{"CBC", "", nil, map[string]any{}, []any{"", nil}},
		"results": map[string]any{
			"CBC::Hemoglobin": map[string]any{"value": "14.2", "unit": ""},
			"CBC::Platelets":  map[string]any{"value": ""},
		},
	}
	want := map[string]any{
		"name":  "Mr. Rohit Sharma",
		"flag":  false,
		"count": float64(0),
		"tests": []any{"CBC"},
		"results": map[string]any{
			"CBC::Hemoglobin": map[string]any{"value": "14.2"},
		},
	}
	if got := Sanitize(in); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestSanitize_ListsOfObjects(t *testing.T) {
	in := []any{map[string]any{"a.b": 1}, map[string]any{"ok": 1}}
	want := []any{map[string]any{"ok": 1}}
	if got := Sanitize(in); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestDocument(t *testing.T) {
	m := ResultMap{
		"CBC::Hemoglobin":  {Value: "14.2", Unit: "g/dL", Range: "13-17", OriginalName: "Hemoglobin"},
		"CBC::description": Remark(""),
		"category_CBC":     {Value: ""},
	}
	doc, err := Document(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc) != 1 {
		t.Fatalf("expected only the hemoglobin entry, got %#v", doc)
	}
	entry := doc["CBC::Hemoglobin"].(map[string]any)
	if entry["value"] != "14.2" || entry["original_name"] != "Hemoglobin" {
		t.Errorf("unexpected entry %#v", entry)
	}
}
