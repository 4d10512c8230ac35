package results

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Categories a test can be filed under on the report.
var Categories = []string{
	"HEMATOLOGY",
	"BIOCHEMISTRY",
	"MICROBIOLOGY",
	"CLINICAL PATHOLOGY",
	"SEROLOGY",
	"URINE EXAMINITION",
	"EXAMINATION OF BLOOD",
}

func ValidCategory(c string) bool {
	return c == "" || lo.Contains(Categories, c)
}

// Entry is one stored result. Remarks (per-test descriptions) are stored as a
// bare JSON string; every other entry is an object.
type Entry struct {
	Value        string `json:"value"`
	Unit         string `json:"unit,omitempty"`
	Range        string `json:"range,omitempty"`
	OriginalName string `json:"original_name,omitempty"`

	remark bool
}

// Remark builds a free-text description entry.
func Remark(text string) Entry {
	return Entry{Value: text, remark: true}
}

func (e Entry) IsRemark() bool { return e.remark }

// Label is the name shown on reports, falling back to fallback when the entry
// predates original_name being recorded.
func (e Entry) Label(fallback string) string {
	if e.OriginalName != "" {
		return e.OriginalName
	}
	return fallback
}

type entryObject struct {
	Value        any    `json:"value"`
	Unit         string `json:"unit,omitempty"`
	Range        string `json:"range,omitempty"`
	OriginalName string `json:"original_name,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.remark {
		return json.Marshal(e.Value)
	}
	return json.Marshal(entryObject{
		Value:        e.Value,
		Unit:         e.Unit,
		Range:        e.Range,
		OriginalName: e.OriginalName,
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Remark(s)
		return nil
	}

	var obj entryObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode result entry: %w", err)
	}
	*e = Entry{
		Value:        scalarString(obj.Value),
		Unit:         obj.Unit,
		Range:        obj.Range,
		OriginalName: obj.OriginalName,
	}
	return nil
}

// scalarString renders values older clients stored as JSON numbers or bools.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// ResultMap is a patient's accumulated results keyed by composite key.
type ResultMap map[string]Entry

// Category returns the category recorded for test.
func (m ResultMap) Category(test string) string {
	return m[CategoryKey(test)].Value
}

// Description returns the remark recorded for test.
func (m ResultMap) Description(test string) string {
	return m[DescriptionKey(test)].Value
}

// Tests lists the test names referenced by keys, sorted.
func (m ResultMap) Tests() []string {
	names := lo.FilterMap(lo.Keys(m), func(k string, _ int) (string, bool) {
		if strings.HasPrefix(k, categoryPrefix) {
			return strings.TrimPrefix(k, categoryPrefix), true
		}
		t, _, ok := strings.Cut(k, Sep)
		return t, ok && t != ""
	})
	names = lo.Uniq(names)
	sort.Strings(names)
	return names
}

// Merge overlays entered onto existing: entered wins on collisions and keys
// only in existing are kept. Neither input is modified.
func Merge(existing, entered ResultMap) ResultMap {
	out := make(ResultMap, len(existing)+len(entered))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range entered {
		out[k] = v
	}
	return out
}
