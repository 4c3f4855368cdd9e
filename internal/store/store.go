// Package store provides snapshot persistence adapters: a sqlite-backed
// local cache, an HTTP remote endpoint, a Postgres snapshot table, and an
// in-memory store for tests. All implement state.Store; the repository
// treats them uniformly as "read snapshot, write snapshot".
package store

import (
	"context"
	"sync"

	"github.com/lunchvote/api/internal/state"
)

// Memory keeps the latest snapshot in process. Used by tests and by
// local-only deployments that accept losing state on restart.
type Memory struct {
	mu   sync.Mutex
	snap *state.Snapshot
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Read(_ context.Context) (*state.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	return m.snap.Clone(), nil
}

func (m *Memory) Write(_ context.Context, snap *state.Snapshot) error {
	m.mu.Lock()
	m.snap = snap.Clone()
	m.mu.Unlock()
	return nil
}
