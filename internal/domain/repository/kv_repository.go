package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"manion_server/internal/common"
)

// KVStore is the flat document namespace every entity lives in: problems,
// posts, evaluations, user histories and render jobs are JSON values under
// prefixed string keys. Consistency is last-write-wins per key.
type KVStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	// GetByPrefix returns the values of every key starting with prefix,
	// in key order.
	GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error)
}

// GetDoc loads and unmarshals one document, returning common.ErrNotFound
// when the key is absent.
func GetDoc[T any](ctx context.Context, kv KVStore, key string) (*T, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, common.Errorf("decode document %s: %w", key, err)
	}
	return &doc, nil
}

// ListDocs loads and unmarshals every document under a prefix, skipping
// values that fail to decode.
func ListDocs[T any](ctx context.Context, kv KVStore, prefix string) ([]T, error) {
	raws, err := kv.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	docs := make([]T, 0, len(raws))
	for _, raw := range raws {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type pgKVStore struct {
	db *sql.DB
}

// NewPgKVStore returns a KVStore backed by the kv_store table.
func NewPgKVStore(db *sql.DB) KVStore {
	return &pgKVStore{db: db}
}

func (r *pgKVStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`
	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.Errorf("pgKVStore.Get: %w", err)
	}
	return json.RawMessage(value), nil
}

func (r *pgKVStore) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return common.Errorf("pgKVStore.Set marshal %s: %w", key, err)
	}
	query := `INSERT INTO kv_store (key, value) VALUES ($1, $2)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := r.db.ExecContext(ctx, query, key, data); err != nil {
		return common.Errorf("pgKVStore.Set: %w", err)
	}
	return nil
}

func (r *pgKVStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return common.Errorf("pgKVStore.Delete: %w", err)
	}
	return nil
}

func (r *pgKVStore) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	query := `SELECT value FROM kv_store WHERE key LIKE $1 || '%' ORDER BY key`
	rows, err := r.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, common.Errorf("pgKVStore.GetByPrefix: %w", err)
	}
	defer rows.Close()

	var values []json.RawMessage
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, common.Errorf("pgKVStore.GetByPrefix scan: %w", err)
		}
		values = append(values, json.RawMessage(value))
	}
	if err := rows.Err(); err != nil {
		return nil, common.Errorf("pgKVStore.GetByPrefix rows: %w", err)
	}
	return values, nil
}
