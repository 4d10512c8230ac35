package results

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Sanitize prepares a decoded JSON tree for the record store. Keys containing
// any of . $ # [ ] / are dropped, and so is every nil, empty string, empty list
// or empty object, depth first through maps and lists alike. false and 0 are
// kept. A value that sanitizes to nothing returns nil.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if strings.ContainsAny(k, IllegalKeyChars) {
				continue
			}
			if cleaned := Sanitize(child); !isEmpty(cleaned) {
				out[k] = cleaned
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, child := range t {
			if cleaned := Sanitize(child); !isEmpty(cleaned) {
				out = append(out, cleaned)
			}
		}
		return out
	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// Document converts m to a sanitized JSON object ready to be written.
func Document(m ResultMap) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	cleaned, _ := Sanitize(tree).(map[string]any)
	return cleaned, nil
}
