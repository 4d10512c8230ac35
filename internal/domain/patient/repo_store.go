package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aarogyam/labdesk/internal/domain/results"
	"github.com/aarogyam/labdesk/internal/platform/recordstore"
)

const patientsPath = "patients"

type repoStore struct{ store recordstore.Store }

func NewRepoStore(store recordstore.Store) Repository {
	return &repoStore{store: store}
}

func (r *repoStore) path(id string) (string, error) {
	p, err := recordstore.Child(patientsPath, id)
	if err != nil {
		return "", ErrPatientNotFound
	}
	return p, nil
}

// document encodes p the way it is written: sanitized, without the id, which
// is the record key.
func document(p *Patient) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode patient: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode patient: %w", err)
	}
	delete(tree, "id")
	doc, _ := results.Sanitize(tree).(map[string]any)
	return doc, nil
}

func (r *repoStore) write(ctx context.Context, p *Patient) error {
	path, err := r.path(p.ID)
	if err != nil {
		return err
	}
	doc, err := document(p)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, path, doc)
}

func (r *repoStore) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.NewString()
	return r.write(ctx, p)
}

func (r *repoStore) GetByID(ctx context.Context, id string) (*Patient, error) {
	path, err := r.path(id)
	if err != nil {
		return nil, err
	}
	var p Patient
	if err := recordstore.GetInto(ctx, r.store, path, &p); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	p.ID = id
	return &p, nil
}

func (r *repoStore) Update(ctx context.Context, p *Patient) error {
	if _, err := r.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return r.write(ctx, p)
}

func (r *repoStore) List(ctx context.Context) ([]*Patient, error) {
	raw, err := r.store.Get(ctx, patientsPath)
	if errors.Is(err, recordstore.ErrNotFound) {
		return []*Patient{}, nil
	}
	if err != nil {
		return nil, err
	}
	var docs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode patients: %w", err)
	}
	out := make([]*Patient, 0, len(docs))
	for id, doc := range docs {
		var p Patient
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("decode patient %s: %w", id, err)
		}
		p.ID = id
		out = append(out, &p)
	}
	return out, nil
}

func (r *repoStore) SaveResults(ctx context.Context, id string, m map[string]any) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	path, _ := r.path(id)
	return r.store.Update(ctx, path, map[string]any{
		"results":          m,
		"report_generated": false,
	})
}

func (r *repoStore) MarkReported(ctx context.Context, id, pdfPath, reportedOn string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	path, _ := r.path(id)
	return r.store.Update(ctx, path, map[string]any{
		"report_generated": true,
		"pdf_path":         pdfPath,
		"reported_on":      reportedOn,
	})
}
