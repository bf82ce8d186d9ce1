package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLBlobStore persists blobs in a single key/value table. It works against
// both Postgres (lib/pq) and SQLite (modernc.org/sqlite); only the placeholder
// syntax differs.
type SQLBlobStore struct {
	db      *sql.DB
	dialect string
}

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// NewSQLBlobStore creates the usage_blobs table if needed.
func NewSQLBlobStore(ctx context.Context, db *sql.DB, dialect string) (*SQLBlobStore, error) {
	var ddl string
	switch dialect {
	case DialectPostgres:
		ddl = `CREATE TABLE IF NOT EXISTS usage_blobs (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	case DialectSQLite:
		ddl = `CREATE TABLE IF NOT EXISTS usage_blobs (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	default:
		return nil, fmt.Errorf("unsupported blob store dialect: %s", dialect)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create usage_blobs table: %w", err)
	}
	return &SQLBlobStore{db: db, dialect: dialect}, nil
}

func (s *SQLBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM usage_blobs WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLBlobStore) Put(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO usage_blobs (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, s.rebind(query), key, value); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	return nil
}

func (s *SQLBlobStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM usage_blobs WHERE key = ?`), key); err != nil {
		return fmt.Errorf("failed to delete blob %q: %w", key, err)
	}
	return nil
}

// rebind rewrites ? placeholders to $N for Postgres.
func (s *SQLBlobStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
