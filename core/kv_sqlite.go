package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteKV is a KVStore persisted in the kv table.
type SQLiteKV struct {
	db *sql.DB
}

func NewSQLiteKV(db *sql.DB) *SQLiteKV {
	return &SQLiteKV{db: db}
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM kv WHERE key = @key`
	var value string
	err := s.db.QueryRowContext(ctx, query, sql.Named("key", key)).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("QueryRowContext: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (@key, @value, @updated_at)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		sql.Named("key", key), sql.Named("value", value),
		sql.Named("updated_at", time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}
	return nil
}
