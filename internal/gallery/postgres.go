package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// PostgresBackend stores the catalog as a single JSONB document row.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend constructs a backend on pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// EnsureSchema creates the catalog table and its single row.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	if _, err := b.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gallery_catalog (
    id         SMALLINT PRIMARY KEY,
    records    JSONB NOT NULL DEFAULT '[]'::jsonb,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`); err != nil {
		return fmt.Errorf("create gallery table: %w", err)
	}
	if _, err := b.pool.Exec(ctx, `
INSERT INTO gallery_catalog (id, records)
VALUES (1, '[]'::jsonb)
ON CONFLICT (id) DO NOTHING;`); err != nil {
		return fmt.Errorf("seed gallery row: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	var raw []byte
	err := b.pool.QueryRow(ctx, `SELECT records FROM gallery_catalog WHERE id = 1;`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return decodeCatalog(raw)
}

func (b *PostgresBackend) Update(ctx context.Context, fn MutateFunc) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT records FROM gallery_catalog WHERE id = 1 FOR UPDATE;`).Scan(&raw); err != nil {
		return fmt.Errorf("lock catalog: %w", err)
	}
	records, err := decodeCatalog(raw)
	if err != nil {
		return err
	}

	updated, changed, err := fn(records)
	if err != nil || !changed {
		return err
	}
	if updated == nil {
		updated = []Record{}
	}
	payload, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE gallery_catalog SET records = $1, updated_at = NOW() WHERE id = 1;`, payload); err != nil {
		return fmt.Errorf("store catalog: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}
