package patient

import (
	"context"
	"errors"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalid         = errors.New("invalid patient data")
	ErrNoResults       = errors.New("no values entered")
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context) ([]*Patient, error)
	// SaveResults replaces the stored result map and clears the reported flag.
	SaveResults(ctx context.Context, id string, m map[string]any) error
	MarkReported(ctx context.Context, id, pdfPath, reportedOn string) error
}
