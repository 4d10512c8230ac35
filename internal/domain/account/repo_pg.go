package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type queryable interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type accountRepoPG struct{ conn queryable }

func NewAccountRepoPG(pool *pgxpool.Pool) Repository {
	return &accountRepoPG{conn: pool}
}

func (r *accountRepoPG) Create(ctx context.Context, a *Account) error {
	err := r.conn.QueryRow(ctx,
		`INSERT INTO lab_user (username, password) VALUES ($1, $2) RETURNING created_at`,
		a.Username, a.Password).Scan(&a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *accountRepoPG) GetByUsername(ctx context.Context, username string) (*Account, error) {
	var a Account
	err := r.conn.QueryRow(ctx,
		`SELECT username, password, created_at FROM lab_user WHERE username = $1`,
		username).Scan(&a.Username, &a.Password, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}
