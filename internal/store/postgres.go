package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lunchvote/api/internal/state"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    body JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres stores the snapshot as a single jsonb row. The remote of choice
// for self-hosted deployments that prefer a database over a webhook.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the snapshot table exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Read(ctx context.Context) (*state.Snapshot, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT body FROM snapshots WHERE id = 1`).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return state.Decode(body)
}

func (p *Postgres) Write(ctx context.Context, snap *state.Snapshot) error {
	body, err := state.Encode(snap)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO snapshots (id, body, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET body = excluded.body, updated_at = now()`,
		body)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
