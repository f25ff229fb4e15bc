// Package storage persists the search audit log in SQLite.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// One row per Check call. error_kind is NULL for successful calls.
const schema = `
CREATE TABLE IF NOT EXISTS searches (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id  TEXT NOT NULL,
    source      TEXT NOT NULL,
    url         TEXT NOT NULL,
    item_count  INTEGER NOT NULL DEFAULT 0,
    success     BOOLEAN NOT NULL DEFAULT 0,
    error_kind  TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_searches_url ON searches(url);
CREATE INDEX IF NOT EXISTS idx_searches_source ON searches(source);
CREATE INDEX IF NOT EXISTS idx_searches_request_id ON searches(request_id);
`

// NewDatabase opens the SQLite database at dbPath and applies the schema.
func NewDatabase(dbPath string) (*sqlx.DB, error) {
	// WAL lets the admin endpoints read while a search is being recorded.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}
