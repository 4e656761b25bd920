// Package file implements a Storage backend that keeps tasks in a JSON file.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"todotui/backend"
)

// Config holds file backend configuration
type Config struct {
	FilePath string // Path to task file
}

// Backend implements backend.Storage for file-based storage
type Backend struct {
	config   Config
	filePath string // Resolved absolute path
}

// New creates a new file backend
func New(cfg Config) (*Backend, error) {
	filePath := cfg.FilePath
	if filePath == "" {
		filePath = "tasks.json"
	}

	// Resolve relative paths
	if !filepath.IsAbs(filePath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		filePath = filepath.Join(wd, filePath)
	}

	return &Backend{
		config:   cfg,
		filePath: filePath,
	}, nil
}

// Path returns the resolved path of the task file
func (b *Backend) Path() string {
	return b.filePath
}

// MetaPath returns the path of the file holding the id counter. The task
// array stays a plain list, so the counter lives next to it.
func (b *Backend) MetaPath() string {
	return b.filePath + ".meta"
}

type meta struct {
	NextID int `json:"next_id"`
}

// Close closes the backend
func (b *Backend) Close() error {
	return nil
}

// Load reads the task file. A missing or empty file is an empty store.
func (b *Backend) Load(ctx context.Context) (*backend.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nextID, err := b.loadMeta()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.filePath)
	if os.IsNotExist(err) {
		return &backend.Snapshot{NextID: nextID}, nil
	}
	if err != nil {
		return nil, backend.IOErrorf("read %s: %w", b.filePath, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &backend.Snapshot{NextID: nextID}, nil
	}

	tasks, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.filePath, err)
	}
	return &backend.Snapshot{Tasks: tasks, NextID: nextID}, nil
}

// loadMeta reads the id counter. A missing meta file counts as zero; the
// store then continues after the highest loaded id.
func (b *Backend) loadMeta() (int, error) {
	data, err := os.ReadFile(b.MetaPath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, backend.IOErrorf("read %s: %w", b.MetaPath(), err)
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return 0, backend.FormatErrorf("%s: decode id counter: %w", b.MetaPath(), err)
	}
	if m.NextID < 0 {
		return 0, backend.FormatErrorf("%s: negative next_id %d", b.MetaPath(), m.NextID)
	}
	return m.NextID, nil
}

// Save writes the snapshot to a fresh temporary file next to the task file
// and renames it into place, so a crash leaves either the old or the new
// file behind. The id counter is replaced first: a crash in between leaves a
// counter ahead of the tasks, never behind them.
func (b *Backend) Save(ctx context.Context, snap *backend.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(snap.Tasks)
	if err != nil {
		return err
	}

	// Ensure parent directory exists
	dir := filepath.Dir(b.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return backend.IOErrorf("failed to create directory: %w", err)
	}

	metaData, err := json.Marshal(meta{NextID: snap.NextID})
	if err != nil {
		return backend.FormatErrorf("encode id counter: %w", err)
	}
	if err := replaceFile(b.MetaPath(), append(metaData, '\n')); err != nil {
		return err
	}
	return replaceFile(b.filePath, data)
}

// replaceFile atomically replaces path with data.
func replaceFile(path string, data []byte) error {
	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return backend.IOErrorf("write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return backend.IOErrorf("replace %s: %w", path, err)
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Encode renders tasks as the on-disk JSON array.
func Encode(tasks []backend.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []backend.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, backend.FormatErrorf("encode tasks: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses the on-disk JSON array. Records must carry unique
// non-negative ids and satisfy the task invariants.
func Decode(data []byte) ([]backend.Task, error) {
	var tasks []backend.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, backend.FormatErrorf("decode tasks: %w", err)
	}

	seen := make(map[int]bool, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if t.ID < 0 {
			return nil, backend.FormatErrorf("record %d: negative id %d", i, t.ID)
		}
		if seen[t.ID] {
			return nil, backend.FormatErrorf("record %d: duplicate id %d", i, t.ID)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return nil, backend.FormatErrorf("record %d (id %d): %w", i, t.ID, err)
		}
		if t.Due != nil {
			local := t.Due.Local()
			t.Due = &local
		}
	}
	return tasks, nil
}

// Verify interface compliance at compile time
var _ backend.Storage = (*Backend)(nil)
