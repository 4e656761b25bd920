// Package store holds the ordered task collection and persists it after
// every mutation.
package store

import (
	"context"
	"errors"
	"fmt"

	"todotui/backend"
	"todotui/internal/utils"
)

// Store is an ordered collection of tasks keyed by id. It is owned by a
// single goroutine and performs no locking.
type Store struct {
	storage backend.Storage
	tasks   []backend.Task
	index   map[int]int // id -> position in tasks
	nextID  int
	dirty   bool
}

// Open loads the snapshot from storage. Load failures are returned as-is so
// callers can refuse to start on ErrFormat or ErrIO.
func Open(ctx context.Context, storage backend.Storage) (*Store, error) {
	snap, err := storage.Load(ctx)
	if err != nil {
		return nil, err
	}

	s := &Store{storage: storage}
	if err := s.reset(snap); err != nil {
		return nil, err
	}
	utils.Debugf("loaded %d tasks (next id %d)", len(s.tasks), s.nextID)
	return s, nil
}

func (s *Store) reset(snap *backend.Snapshot) error {
	s.tasks = make([]backend.Task, 0, len(snap.Tasks))
	s.index = make(map[int]int, len(snap.Tasks))
	s.nextID = snap.NextID

	for _, t := range snap.Tasks {
		if _, dup := s.index[t.ID]; dup {
			return backend.FormatErrorf("duplicate task id %d", t.ID)
		}
		s.index[t.ID] = len(s.tasks)
		s.tasks = append(s.tasks, t.Clone())
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
	return nil
}

// Create validates the draft, appends it under the next unused id and
// persists. The id is returned even when only the save failed.
func (s *Store) Create(ctx context.Context, draft backend.Draft) (int, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}

	id := s.nextID
	s.nextID++
	s.index[id] = len(s.tasks)
	s.tasks = append(s.tasks, backend.Task{ID: id, Draft: draft.Clone()})

	return id, s.persist(ctx, "create", id)
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id int) (backend.Task, error) {
	pos, ok := s.index[id]
	if !ok {
		return backend.Task{}, &backend.NotFoundError{ID: id}
	}
	return s.tasks[pos].Clone(), nil
}

// Update replaces every mutable field of the task with the draft.
func (s *Store) Update(ctx context.Context, id int, draft backend.Draft) error {
	pos, ok := s.index[id]
	if !ok {
		return &backend.NotFoundError{ID: id}
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	s.tasks[pos].Draft = draft.Clone()
	return s.persist(ctx, "update", id)
}

// Delete removes the task permanently. Its id is never handed out again.
func (s *Store) Delete(ctx context.Context, id int) error {
	pos, ok := s.index[id]
	if !ok {
		return &backend.NotFoundError{ID: id}
	}

	s.tasks = append(s.tasks[:pos], s.tasks[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.tasks); i++ {
		s.index[s.tasks[i].ID] = i
	}
	return s.persist(ctx, "delete", id)
}

// List returns copies of the tasks matching the filter in insertion order.
func (s *Store) List(filter backend.Filter) []backend.Task {
	var out []backend.Task
	for _, t := range s.tasks {
		if filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// All returns copies of every task in insertion order.
func (s *Store) All() []backend.Task {
	return s.List(backend.Filter{ShowComplete: true})
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Dirty reports whether the last save failed and memory is ahead of storage.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Flush writes the full snapshot to storage.
func (s *Store) Flush(ctx context.Context) error {
	snap := &backend.Snapshot{Tasks: s.tasks, NextID: s.nextID}
	if err := s.storage.Save(ctx, snap); err != nil {
		s.dirty = true
		if !errors.Is(err, backend.ErrIO) {
			err = fmt.Errorf("%w: %w", backend.ErrIO, err)
		}
		return err
	}
	s.dirty = false
	return nil
}

// Close flushes pending changes if the last save failed, then closes storage.
func (s *Store) Close(ctx context.Context) error {
	var flushErr error
	if s.dirty {
		flushErr = s.Flush(ctx)
	}
	return errors.Join(flushErr, s.storage.Close())
}

func (s *Store) persist(ctx context.Context, op string, id int) error {
	if err := s.Flush(ctx); err != nil {
		utils.Warnf("%s task %d kept in memory, save failed: %v", op, id, err)
		return err
	}
	utils.Debugf("%s task %d saved", op, id)
	return nil
}
