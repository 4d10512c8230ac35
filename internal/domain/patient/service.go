package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/aarogyam/labdesk/internal/domain/catalog"
	"github.com/aarogyam/labdesk/internal/domain/results"
)

// Catalog is the part of the test and doctor catalog registration and value
// entry depend on.
type Catalog interface {
	LookupTest(ctx context.Context, name string) (catalog.TestDefinition, bool, error)
	GetDoctor(ctx context.Context, id string) (*catalog.Doctor, error)
}

type Service struct {
	repo    Repository
	catalog Catalog
	now     func() time.Time
}

func NewService(repo Repository, cat Catalog) *Service {
	return &Service{repo: repo, catalog: cat, now: time.Now}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// apply validates in and copies it onto p, pricing the selected tests from
// the catalog.
func (s *Service) apply(ctx context.Context, p *Patient, in RegisterInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = Titles[0]
	}
	if !lo.Contains(Titles, title) {
		return invalid("unknown title %q", in.Title)
	}
	given := strings.Join(strings.Fields(in.GivenName), " ")
	if given == "" {
		return invalid("patient name is required")
	}
	if strings.ContainsAny(given, `/\`) {
		return invalid("patient name must not contain slashes")
	}

	age, err := ParseAge(in.Age)
	if err != nil {
		return invalid("%v", err)
	}
	if age.Unit == "" {
		return invalid("age is required")
	}
	gender, err := ParseGender(in.Gender)
	if err != nil {
		return invalid("%v", err)
	}
	site, err := ParseSampleSite(in.SampleSite)
	if err != nil {
		return invalid("%v", err)
	}

	tests := lo.Uniq(lo.Compact(lo.Map(in.Tests, func(t string, _ int) string {
		return strings.TrimSpace(t)
	})))
	if len(tests) == 0 {
		return invalid("select at least one test")
	}
	total := 0
	for _, name := range tests {
		def, ok, err := s.catalog.LookupTest(ctx, name)
		if err != nil {
			return fmt.Errorf("look up test %s: %w", name, err)
		}
		if !ok {
			return invalid("test %q is not in the catalog", name)
		}
		total += def.Price
	}

	doctor := strings.TrimSpace(in.DoctorName)
	doctorID := strings.TrimSpace(in.DoctorID)
	if doctorID != "" {
		d, err := s.catalog.GetDoctor(ctx, doctorID)
		if errors.Is(err, catalog.ErrDoctorNotFound) {
			return invalid("doctor %q not found", doctorID)
		}
		if err != nil {
			return fmt.Errorf("look up doctor: %w", err)
		}
		doctor = d.Display()
	}

	registered := strings.TrimSpace(in.RegisteredOn)
	if registered == "" {
		registered = FormatTimestamp(s.now())
	} else if _, err := ParseTimestamp(registered); err != nil {
		return invalid("registered_on must look like %q", TimeLayout)
	}

	p.Name = title + " " + given
	p.Age = age
	p.Gender = gender
	p.Phone = strings.TrimSpace(in.Phone)
	p.DoctorID = doctorID
	p.Doctor = doctor
	p.Tests = tests
	p.TotalBill = total
	p.SampleSite = site
	p.RegisteredOn = registered
	return nil
}

// Register creates a patient with no results and no report.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Patient, error) {
	p := &Patient{}
	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update edits registration details. Saved results and report state are kept.
func (s *Service) Update(ctx context.Context, id string, in RegisterInput) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns patients matching q, most recently registered first.
func (s *Service) List(ctx context.Context, q Query) ([]*Patient, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(q.Name))
	date := strings.TrimSpace(q.Date)
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return nil, invalid("date must look like DD/MM/YYYY")
		}
	}

	out := lo.Filter(all, func(p *Patient, _ int) bool {
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			return false
		}
		return date == "" || strings.HasPrefix(p.RegisteredOn, date)
	})

	sort.SliceStable(out, func(i, j int) bool {
		ti, oki := out[i].Registered()
		tj, okj := out[j].Registered()
		switch {
		case oki && okj && !ti.Equal(tj):
			return ti.After(tj)
		case oki != okj:
			return oki
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveResults merges a value-entry submission into the patient's stored
// results. Unknown tests, sub-tests and parameters are rejected before
// anything is written.
func (s *Service) SaveResults(ctx context.Context, id string, sub ResultSubmission) (*Patient, error) {
	if sub.empty() {
		return nil, ErrNoResults
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entered, err := s.buildEntered(ctx, p, sub)
	if err != nil {
		return nil, err
	}

	merged := results.Merge(p.Results, entered)
	doc, err := results.Document(merged)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveResults(ctx, id, doc); err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) buildEntered(ctx context.Context, p *Patient, sub ResultSubmission) (results.ResultMap, error) {
	entered := make(results.ResultMap)
	for _, ts := range sub.Tests {
		if !lo.Contains(p.Tests, ts.Test) {
			return nil, invalid("test %q is not ordered for this patient", ts.Test)
		}
		def, ok, err := s.catalog.LookupTest(ctx, ts.Test)
		if err != nil {
			return nil, fmt.Errorf("look up test %s: %w", ts.Test, err)
		}
		if !ok {
			return nil, invalid("test %q is not in the catalog", ts.Test)
		}

		if ts.Category != nil {
			category := strings.TrimSpace(*ts.Category)
			if !results.ValidCategory(category) {
				return nil, invalid("unknown category %q", *ts.Category)
			}
			entered[results.CategoryKey(ts.Test)] = results.Entry{Value: category}
		}
		if ts.Description != nil {
			entered[results.DescriptionKey(ts.Test)] = results.Remark(strings.TrimSpace(*ts.Description))
		}

		for _, v := range ts.Values {
			subDef, ok := def.SubTest(v.SubTest)
			if !ok {
				return nil, invalid("%s has no sub-test %q", ts.Test, v.SubTest)
			}
			entry := results.Entry{
				Value:        strings.TrimSpace(v.Value),
				Unit:         subDef.Unit,
				Range:        subDef.Range,
				OriginalName: subDef.Name,
			}
			if v.Param != "" {
				paramDef, ok := subDef.Param(v.Param)
				if !ok {
					return nil, invalid("%s / %s has no parameter %q", ts.Test, v.SubTest, v.Param)
				}
				entry.Unit = paramDef.Unit
				entry.Range = paramDef.Range
				entry.OriginalName = paramDef.Name
			}
			entered[results.CanonicalKey(ts.Test, v.SubTest, v.Param)] = entry
		}
	}
	return entered, nil
}

// EntryForm lays out the value-entry sheet for every ordered test that is
// still in the catalog, prefilled through legacy key resolution.
func (s *Service) EntryForm(ctx context.Context, id string) (*EntryForm, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	form := &EntryForm{
		PatientID:   p.ID,
		PatientName: p.Name,
		Doctor:      p.Doctor,
		Registered:  p.RegisteredOn,
		Categories:  results.Categories,
		Tests:       []TestForm{},
	}

	saved := func(test, sub, param string) string {
		if key, ok := results.ResolveResultKey(p.Results, test, sub, param); ok {
			return p.Results[key].Value
		}
		return ""
	}

	for _, name := range p.Tests {
		def, ok, err := s.catalog.LookupTest(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("look up test %s: %w", name, err)
		}
		if !ok {
			continue
		}
		tf := TestForm{
			Test:        name,
			Price:       def.Price,
			Category:    p.Results.Category(name),
			Description: p.Results.Description(name),
			Rows:        []FormRow{},
		}
		for _, sd := range def.SubTests {
			tf.Rows = append(tf.Rows, FormRow{
				SubTest: sd.Name,
				Unit:    sd.Unit,
				Range:   sd.Range,
				Value:   saved(name, sd.Name, ""),
			})
			for _, pd := range sd.Params {
				tf.Rows = append(tf.Rows, FormRow{
					SubTest: sd.Name,
					Param:   pd.Name,
					Unit:    pd.Unit,
					Range:   pd.Range,
					Value:   saved(name, sd.Name, pd.Name),
					Choices: pd.Choices(),
				})
			}
		}
		form.Tests = append(form.Tests, tf)
	}
	return form, nil
}
