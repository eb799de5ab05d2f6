package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hubScope/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
)`

// Store keeps indexed entities in a single Postgres table keyed by kind and id.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the entities table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load returns the stored JSON document for kind and id.
func (s *Store) Load(ctx context.Context, kind store.Kind, id string) ([]byte, bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM entities WHERE kind=$1 AND id=$2`, string(kind), id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Apply writes the batch in one transaction.
func (s *Store) Apply(ctx context.Context, ops []store.Op) error {
	if len(ops) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, op := range ops {
			if op.Delete {
				batch.Queue(`DELETE FROM entities WHERE kind=$1 AND id=$2`, string(op.Kind), op.ID)
				continue
			}
			batch.Queue(`
				INSERT INTO entities (kind, id, data, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (kind, id)
				DO UPDATE SET data = EXCLUDED.data, updated_at = now()
			`, string(op.Kind), op.ID, op.Data)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range ops {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("apply %s %s: %w", ops[i].Kind, ops[i].ID, err)
			}
		}
		return br.Close()
	})
}

// Count returns the number of stored entities of kind.
func (s *Store) Count(ctx context.Context, kind store.Kind) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM entities WHERE kind=$1`, string(kind)).Scan(&n)
	return n, err
}
