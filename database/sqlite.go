package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver.
)

// NewSQLiteDB opens or creates the SQLite file at path.
func NewSQLiteDB(path string) (*DBClient, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	// One writer; the log store serializes its own read-modify-write.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to sqlite database: %w", err)
	}
	return &DBClient{DB: db, name: "SQLite", logger: zap.NewNop()}, nil
}
