package account

import (
	"context"
	"errors"
)

var (
	ErrAccountExists   = errors.New("username already taken")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalid         = errors.New("username and password are required")
)

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByUsername(ctx context.Context, username string) (*Account, error)
}
