// Package sqlitekv provides a SQLite-backed implementation of the
// sdk's key/value storage capability.
package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/commonsync/objectstore/objectstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Store persists sdk state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store and creates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load implements objectstore.Storage.
func (s *Store) Load(ctx context.Context) (objectstore.KeyValueStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// TryGet returns the value stored under key, with false when absent.
func (s *Store) TryGet(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Add stores value under key, replacing any existing value.
func (s *Store) Add(ctx context.Context, key string, value string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("add %q: %w", key, err)
	}
	return nil
}

// Remove deletes the value stored under key, if any.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM kv WHERE key = ?`, key,
	)
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}
