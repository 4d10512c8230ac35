package account

import (
	"context"
	"errors"
	"strings"
)

// Service is the lab user directory. Passwords are compared as stored.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateAccount(ctx context.Context, username, password string) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalid
	}
	a := &Account{Username: username, Password: password}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// VerifyCredentials reports whether username exists with exactly password.
// Unknown users are a plain false; only store failures return an error.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	a, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.Password == password, nil
}
