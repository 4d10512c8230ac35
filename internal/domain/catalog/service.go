package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aarogyam/labdesk/internal/domain/results"
)

type Service struct {
	doctors DoctorRepository
	tests   TestRepository
}

func NewService(doctors DoctorRepository, tests TestRepository) *Service {
	return &Service{doctors: doctors, tests: tests}
}

// -- Doctors --

func validateDoctor(d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Qualification = strings.TrimSpace(d.Qualification)
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Qualification == "" {
		return fmt.Errorf("qualification is required")
	}
	return nil
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	return s.doctors.List(ctx)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}
	if err := validateDoctor(d); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id string) error {
	if _, err := s.doctors.GetByID(ctx, id); err != nil {
		return err
	}
	return s.doctors.Delete(ctx, id)
}

// -- Tests --

// validateTestName keeps test names usable as both a record-store key and the
// first segment of a result key.
func validateTestName(name string) error {
	if name == "" {
		return fmt.Errorf("test name is required")
	}
	if strings.ContainsAny(name, results.IllegalKeyChars) {
		return fmt.Errorf("test name %q must not contain any of %q", name, results.IllegalKeyChars)
	}
	if strings.Contains(name, results.Sep) {
		return fmt.Errorf("test name %q must not contain %q", name, results.Sep)
	}
	return nil
}

func validateTest(t *TestDefinition) error {
	t.Name = strings.TrimSpace(t.Name)
	if err := validateTestName(t.Name); err != nil {
		return err
	}
	if t.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}

	subKeys := make(map[string]bool)
	for i := range t.SubTests {
		sub := &t.SubTests[i]
		sub.Name = strings.TrimSpace(sub.Name)
		if sub.Name == "" {
			return fmt.Errorf("sub-test %d: name is required", i+1)
		}
		key := strings.ToLower(results.Normalize(sub.Name))
		if key == "description" {
			return fmt.Errorf("sub-test name %q is reserved", sub.Name)
		}
		if subKeys[key] {
			return fmt.Errorf("sub-test %q collides with another sub-test of %s", sub.Name, t.Name)
		}
		subKeys[key] = true

		paramKeys := make(map[string]bool)
		for j := range sub.Params {
			p := &sub.Params[j]
			p.Name = strings.TrimSpace(p.Name)
			if p.Name == "" {
				return fmt.Errorf("sub-test %q parameter %d: name is required", sub.Name, j+1)
			}
			pk := strings.ToLower(results.Normalize(p.Name))
			if paramKeys[pk] {
				return fmt.Errorf("parameter %q collides with another parameter of %s", p.Name, sub.Name)
			}
			paramKeys[pk] = true
		}
	}
	return nil
}

// SaveTest creates a test or replaces the definition stored under its name.
func (s *Service) SaveTest(ctx context.Context, t *TestDefinition) error {
	if err := validateTest(t); err != nil {
		return err
	}
	return s.tests.Save(ctx, t)
}

func (s *Service) GetTest(ctx context.Context, name string) (*TestDefinition, error) {
	return s.tests.GetByName(ctx, name)
}

func (s *Service) ListTests(ctx context.Context) ([]*TestDefinition, error) {
	return s.tests.List(ctx)
}

func (s *Service) DeleteTest(ctx context.Context, name string) error {
	if _, err := s.tests.GetByName(ctx, name); err != nil {
		return err
	}
	return s.tests.Delete(ctx, name)
}

// RenameTest saves t under its (possibly new) name and removes oldName.
// Results already stored on patients keep their old keys.
func (s *Service) RenameTest(ctx context.Context, oldName string, t *TestDefinition) error {
	if err := validateTest(t); err != nil {
		return err
	}
	if _, err := s.tests.GetByName(ctx, oldName); err != nil {
		return err
	}
	if t.Name != oldName {
		if _, err := s.tests.GetByName(ctx, t.Name); err == nil {
			return fmt.Errorf("%w: %s", ErrTestExists, t.Name)
		} else if !errors.Is(err, ErrTestNotFound) {
			return err
		}
	}
	if err := s.tests.Save(ctx, t); err != nil {
		return err
	}
	if t.Name != oldName {
		return s.tests.Delete(ctx, oldName)
	}
	return nil
}

// Snapshot returns the whole test catalog keyed by test name.
func (s *Service) Snapshot(ctx context.Context) (map[string]TestDefinition, error) {
	tests, err := s.tests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load test catalog: %w", err)
	}
	out := make(map[string]TestDefinition, len(tests))
	for _, t := range tests {
		out[t.Name] = *t
	}
	return out, nil
}

// LookupTest satisfies live catalog lookups from the report engine.
func (s *Service) LookupTest(ctx context.Context, name string) (TestDefinition, bool, error) {
	t, err := s.tests.GetByName(ctx, name)
	if errors.Is(err, ErrTestNotFound) {
		return TestDefinition{}, false, nil
	}
	if err != nil {
		return TestDefinition{}, false, err
	}
	return *t, true, nil
}
