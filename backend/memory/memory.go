// Package memory implements a Storage backend that keeps the snapshot in
// process memory. It backs tests and the "memory" storage setting.
package memory

import (
	"context"
	"sync"

	"todotui/backend"
)

// Backend implements backend.Storage in memory
type Backend struct {
	mu    sync.RWMutex
	snap  backend.Snapshot
	saves int

	// SaveErr, when set, is returned by Save without storing anything.
	SaveErr error
	// LoadErr, when set, is returned by Load.
	LoadErr error
}

// New creates an empty memory backend
func New() *Backend {
	return &Backend{}
}

// NewWithTasks creates a memory backend pre-filled with tasks
func NewWithTasks(tasks ...backend.Task) *Backend {
	b := New()
	b.snap = cloneSnapshot(&backend.Snapshot{Tasks: tasks})
	return b
}

// Load returns a copy of the stored snapshot
func (b *Backend) Load(ctx context.Context) (*backend.Snapshot, error) {
	_ = ctx
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	snap := cloneSnapshot(&b.snap)
	return &snap, nil
}

// Save stores a copy of the snapshot
func (b *Backend) Save(ctx context.Context, snap *backend.Snapshot) error {
	_ = ctx
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SaveErr != nil {
		return b.SaveErr
	}
	b.snap = cloneSnapshot(snap)
	b.saves++
	return nil
}

// Saves returns how many snapshots have been stored
func (b *Backend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// Close closes the backend
func (b *Backend) Close() error {
	return nil
}

func cloneSnapshot(snap *backend.Snapshot) backend.Snapshot {
	out := backend.Snapshot{NextID: snap.NextID}
	if len(snap.Tasks) > 0 {
		out.Tasks = make([]backend.Task, len(snap.Tasks))
		for i, t := range snap.Tasks {
			out.Tasks[i] = t.Clone()
		}
	}
	return out
}

// Verify interface compliance at compile time
var _ backend.Storage = (*Backend)(nil)
