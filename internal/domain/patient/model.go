package patient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aarogyam/labdesk/internal/domain/results"
)

// TimeLayout is the registration and report timestamp format, e.g.
// "05/03/2025 10:30 AM".
const TimeLayout = "02/01/2006 03:04 PM"

// DateLayout is the date part of TimeLayout, used for date filters.
const DateLayout = "02/01/2006"

func FormatTimestamp(t time.Time) string { return t.Format(TimeLayout) }

func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.Local)
}

// Titles accepted in front of a patient's given name.
var Titles = []string{"Mr.", "Mrs.", "Miss", "Master", "Smt."}

type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
)

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return Male, nil
	case "female":
		return Female, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*g = ""
		return nil
	}
	parsed, err := ParseGender(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

type SampleSite string

const (
	InsideLab  SampleSite = "Inside Lab"
	OutsideLab SampleSite = "Outside Lab"
)

func ParseSampleSite(s string) (SampleSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inside lab":
		return InsideLab, nil
	case "outside lab":
		return OutsideLab, nil
	}
	return "", fmt.Errorf("unknown sample site %q", s)
}

func (s *SampleSite) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSampleSite(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type AgeUnit string

const (
	Years  AgeUnit = "Years"
	Months AgeUnit = "Months"
	Days   AgeUnit = "Days"
)

func ParseAgeUnit(s string) (AgeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "years", "year", "yrs", "y":
		return Years, nil
	case "months", "month", "m":
		return Months, nil
	case "days", "day", "d":
		return Days, nil
	}
	return "", fmt.Errorf("unknown age unit %q", s)
}

// Age is stored as a single string such as "25 Years".
type Age struct {
	Value int
	Unit  AgeUnit
}

func (a Age) String() string {
	if a.Unit == "" {
		return ""
	}
	return fmt.Sprintf("%d %s", a.Value, a.Unit)
}

// ParseAge reads "25 Years"; a bare number is taken as years.
func ParseAge(s string) (Age, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Age{}, nil
	}
	if len(fields) > 2 {
		return Age{}, fmt.Errorf("malformed age %q", s)
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil || v < 0 {
		return Age{}, fmt.Errorf("malformed age %q", s)
	}
	unit := Years
	if len(fields) == 2 {
		if unit, err = ParseAgeUnit(fields[1]); err != nil {
			return Age{}, err
		}
	}
	return Age{Value: v, Unit: unit}, nil
}

func (a Age) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Age) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Some older records stored the age as a bare number.
		var n int
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return err
		}
		s = strconv.Itoa(n)
	}
	parsed, err := ParseAge(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

type Patient struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Age             Age               `json:"age"`
	Gender          Gender            `json:"gender"`
	Phone           string            `json:"phone,omitempty"`
	DoctorID        string            `json:"doctor_id,omitempty"`
	Doctor          string            `json:"doctor,omitempty"`
	Tests           []string          `json:"tests"`
	TotalBill       int               `json:"total_bill"`
	SampleSite      SampleSite        `json:"sample_collected"`
	RegisteredOn    string            `json:"registered_on"`
	ReportGenerated bool              `json:"report_generated"`
	ReportedOn      string            `json:"reported_on"`
	PDFPath         string            `json:"pdf_path"`
	Results         results.ResultMap `json:"results,omitempty"`
}

// Registered returns the parsed registration time.
func (p *Patient) Registered() (time.Time, bool) {
	t, err := ParseTimestamp(p.RegisteredOn)
	return t, err == nil
}

// RegisterInput is the registration and edit form.
type RegisterInput struct {
	Title        string   `json:"title"`
	GivenName    string   `json:"given_name"`
	Age          string   `json:"age"`
	Gender       string   `json:"gender"`
	Phone        string   `json:"phone"`
	DoctorID     string   `json:"doctor_id"`
	DoctorName   string   `json:"doctor_name"`
	Tests        []string `json:"tests"`
	SampleSite   string   `json:"sample_collected"`
	RegisteredOn string   `json:"registered_on"`
}

// Query filters patient listings. Date is DD/MM/YYYY.
type Query struct {
	Name string
	Date string
}

// ResultSubmission is one value-entry save.
type ResultSubmission struct {
	Tests []TestSubmission `json:"tests"`
}

// TestSubmission carries one test's entered values. Category and Description
// are left untouched when nil; an explicit empty string clears them.
type TestSubmission struct {
	Test        string            `json:"test"`
	Category    *string           `json:"category,omitempty"`
	Description *string           `json:"description,omitempty"`
	Values      []ValueSubmission `json:"values"`
}

type ValueSubmission struct {
	SubTest string `json:"sub_test"`
	Param   string `json:"param,omitempty"`
	Value   string `json:"value"`
}

func (s ResultSubmission) empty() bool {
	for _, t := range s.Tests {
		if len(t.Values) > 0 || t.Category != nil || t.Description != nil {
			return false
		}
	}
	return true
}

// EntryForm is the value-entry sheet for a patient, prefilled with any values
// already saved.
type EntryForm struct {
	PatientID   string     `json:"patient_id"`
	PatientName string     `json:"patient_name"`
	Doctor      string     `json:"doctor"`
	Registered  string     `json:"registered_on"`
	Categories  []string   `json:"categories"`
	Tests       []TestForm `json:"tests"`
}

type TestForm struct {
	Test        string    `json:"test"`
	Price       int       `json:"price"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Rows        []FormRow `json:"rows"`
}

type FormRow struct {
	SubTest string   `json:"sub_test"`
	Param   string   `json:"param,omitempty"`
	Unit    string   `json:"unit,omitempty"`
	Range   string   `json:"range,omitempty"`
	Value   string   `json:"value"`
	Choices []string `json:"choices,omitempty"`
}
