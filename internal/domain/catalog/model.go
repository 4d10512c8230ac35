package catalog

import (
	"fmt"
	"strings"
)

type Doctor struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Qualification string `json:"qualification"`
}

// Display is how a referring doctor is printed on patient records and reports.
func (d Doctor) Display() string {
	if d.Qualification == "" {
		return d.Name
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Qualification)
}

// ParameterDefinition is a measurable nested under a sub-test. Options holds
// the allowed values as a comma-separated list.
type ParameterDefinition struct {
	Name    string `json:"name"`
	Unit    string `json:"unit,omitempty"`
	Range   string `json:"range,omitempty"`
	Options string `json:"options,omitempty"`
}

// Choices splits Options into trimmed, non-empty values.
func (p ParameterDefinition) Choices() []string {
	var out []string
	for _, opt := range strings.Split(p.Options, ",") {
		if o := strings.TrimSpace(opt); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type SubTestDefinition struct {
	Name   string                `json:"name"`
	Unit   string                `json:"unit,omitempty"`
	Range  string                `json:"range,omitempty"`
	Params []ParameterDefinition `json:"sub_params,omitempty"`
}

// TestDefinition is a catalog test. Its name is also its catalog key.
type TestDefinition struct {
	Name     string              `json:"name"`
	Price    int                 `json:"price"`
	SubTests []SubTestDefinition `json:"subtests"`
}

// SubTest looks up a sub-test by exact name.
func (t TestDefinition) SubTest(name string) (SubTestDefinition, bool) {
	for _, s := range t.SubTests {
		if s.Name == name {
			return s, true
		}
	}
	return SubTestDefinition{}, false
}

// Param looks up a parameter by exact name.
func (s SubTestDefinition) Param(name string) (ParameterDefinition, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDefinition{}, false
}
