package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/storage"
)

const (
	selectValue = `SELECT value::text FROM kv WHERE key = $1`
	upsertValue = `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2::jsonb, now()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// KV stores each key as one row of the kv table (see migrations).
type KV struct{ db *DB }

var _ storage.Store = (*KV)(nil)

// NewKV constructs a table-backed store.
func NewKV(db *DB) *KV { return &KV{db: db} }

// Get selects the JSON value for key.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var v string
	if err := s.db.Pool.QueryRow(ctx, selectValue, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return []byte(v), nil
}

// Set upserts the JSON value for key in a single statement.
func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Pool.Exec(ctx, upsertValue, key, string(value))
	return err
}
