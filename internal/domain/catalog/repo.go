package catalog

import (
	"context"
	"errors"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrTestNotFound   = errors.New("test not found")
	ErrTestExists     = errors.New("test already exists")
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Doctor, error)
}

type TestRepository interface {
	Save(ctx context.Context, t *TestDefinition) error
	GetByName(ctx context.Context, name string) (*TestDefinition, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*TestDefinition, error)
}
