package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/aarogyam/labdesk/internal/platform/recordstore"
)

const (
	doctorsPath = "doctors"
	testsPath   = "tests"
)

// readCollection decodes every child document under path. A missing
// collection is empty.
func readCollection(ctx context.Context, store recordstore.Store, path string) (map[string]json.RawMessage, error) {
	raw, err := store.Get(ctx, path)
	if errors.Is(err, recordstore.ErrNotFound) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	var docs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return docs, nil
}

// =========== Doctor Repository ===========

type doctorRepoStore struct{ store recordstore.Store }

func NewDoctorRepoStore(store recordstore.Store) DoctorRepository {
	return &doctorRepoStore{store: store}
}

func (r *doctorRepoStore) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.NewString()
	path, err := recordstore.Child(doctorsPath, d.ID)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, path, d)
}

func (r *doctorRepoStore) GetByID(ctx context.Context, id string) (*Doctor, error) {
	path, err := recordstore.Child(doctorsPath, id)
	if err != nil {
		return nil, ErrDoctorNotFound
	}
	var d Doctor
	if err := recordstore.GetInto(ctx, r.store, path, &d); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	d.ID = id
	return &d, nil
}

func (r *doctorRepoStore) Update(ctx context.Context, d *Doctor) error {
	if _, err := r.GetByID(ctx, d.ID); err != nil {
		return err
	}
	path, err := recordstore.Child(doctorsPath, d.ID)
	if err != nil {
		return err
	}
	return r.store.Update(ctx, path, map[string]any{
		"name":          d.Name,
		"qualification": d.Qualification,
	})
}

func (r *doctorRepoStore) Delete(ctx context.Context, id string) error {
	path, err := recordstore.Child(doctorsPath, id)
	if err != nil {
		return ErrDoctorNotFound
	}
	return r.store.Delete(ctx, path)
}

func (r *doctorRepoStore) List(ctx context.Context) ([]*Doctor, error) {
	docs, err := readCollection(ctx, r.store, doctorsPath)
	if err != nil {
		return nil, err
	}
	out := make([]*Doctor, 0, len(docs))
	for id, raw := range docs {
		var d Doctor
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode doctor %s: %w", id, err)
		}
		d.ID = id
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// =========== Test Repository ===========

type testRepoStore struct{ store recordstore.Store }

func NewTestRepoStore(store recordstore.Store) TestRepository {
	return &testRepoStore{store: store}
}

func (r *testRepoStore) Save(ctx context.Context, t *TestDefinition) error {
	path, err := recordstore.Child(testsPath, t.Name)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, path, t)
}

func (r *testRepoStore) GetByName(ctx context.Context, name string) (*TestDefinition, error) {
	path, err := recordstore.Child(testsPath, name)
	if err != nil {
		return nil, ErrTestNotFound
	}
	var t TestDefinition
	if err := recordstore.GetInto(ctx, r.store, path, &t); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	t.Name = name
	return &t, nil
}

func (r *testRepoStore) Delete(ctx context.Context, name string) error {
	path, err := recordstore.Child(testsPath, name)
	if err != nil {
		return ErrTestNotFound
	}
	return r.store.Delete(ctx, path)
}

func (r *testRepoStore) List(ctx context.Context) ([]*TestDefinition, error) {
	docs, err := readCollection(ctx, r.store, testsPath)
	if err != nil {
		return nil, err
	}
	out := make([]*TestDefinition, 0, len(docs))
	for name, raw := range docs {
		var t TestDefinition
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode test %s: %w", name, err)
		}
		t.Name = name
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
