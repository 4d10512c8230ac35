package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists nodes in the record_node table, one JSONB document per path.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// likePrefix matches every descendant of path.
func likePrefix(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(path) + "/%"
}

func (s *PGStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT path, doc::text FROM record_node WHERE path = $1 OR path LIKE $2`,
		p, likePrefix(p))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p, err)
	}
	defer rows.Close()

	nodes := make(map[string]json.RawMessage)
	for rows.Next() {
		var np, doc string
		if err := rows.Scan(&np, &doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
		nodes[np] = json.RawMessage(doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", p, err)
	}

	return assemble(p, nodes)
}

func (s *PGStore) Set(ctx context.Context, path string, v any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM record_node WHERE path LIKE $1`, likePrefix(p)); err != nil {
		return fmt.Errorf("clear %s: %w", p, err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO record_node (path, parent, doc) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (path) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		p, parentOf(p), string(raw)); err != nil {
		return fmt.Errorf("set %s: %w", p, err)
	}

	return tx.Commit(ctx)
}

func (s *PGStore) Update(ctx context.Context, path string, partial any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	raw, err := encodeObject(partial)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO record_node (path, parent, doc) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (path) DO UPDATE SET
			doc = CASE WHEN jsonb_typeof(record_node.doc) = 'object'
				THEN record_node.doc || EXCLUDED.doc ELSE EXCLUDED.doc END,
			updated_at = NOW()`,
		p, parentOf(p), string(raw))
	if err != nil {
		return fmt.Errorf("update %s: %w", p, err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM record_node WHERE path = $1 OR path LIKE $2`, p, likePrefix(p)); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

func (s *PGStore) Keys(ctx context.Context, path string) ([]string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT path FROM record_node WHERE path LIKE $1`, likePrefix(p))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	return childNames(p, paths), nil
}
