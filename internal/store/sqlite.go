package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lunchvote/api/internal/state"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshot (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    body TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite is the local snapshot cache: one row, replaced on every write.
// Pure-Go driver, so the binary stays cgo-free.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the cache at path.
// Safe to call on an existing file - the schema uses IF NOT EXISTS.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Read(ctx context.Context) (*state.Snapshot, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshot WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return state.Decode(body)
}

func (s *SQLite) Write(ctx context.Context, snap *state.Snapshot) error {
	body, err := state.Encode(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshot (id, body, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		body)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
