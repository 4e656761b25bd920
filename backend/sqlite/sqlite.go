package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"
	"todotui/backend"
	"todotui/internal/recurrence"
)

// Backend implements backend.Storage using SQLite
type Backend struct {
	db   *sql.DB
	path string
}

// New creates a new SQLite backend and initializes the database schema
func New(path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, backend.IOErrorf("open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases and transactions on
	// the same handle.
	db.SetMaxOpenConns(1)

	b := &Backend{db: db, path: path}
	if err := b.initSchema(); err != nil {
		_ = db.Close()
		return nil, backend.IOErrorf("init schema: %w", err)
	}

	return b, nil
}

// initSchema creates the database tables if they don't exist
func (b *Backend) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			due TEXT,
			recurrence TEXT,
			task_group TEXT,
			description TEXT,
			url TEXT,
			complete INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_position ON tasks(position);

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);
	`

	_, err := b.db.Exec(schema)
	return err
}

// Path returns the database path
func (b *Backend) Path() string {
	return b.path
}

// Load returns every task in stored order together with the id counter
func (b *Backend) Load(ctx context.Context) (*backend.Snapshot, error) {
	rows, err := b.db.QueryContext(ctx,
		"SELECT id, name, due, recurrence, task_group, description, url, complete FROM tasks ORDER BY position")
	if err != nil {
		return nil, backend.IOErrorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := &backend.Snapshot{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		snap.Tasks = append(snap.Tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, backend.IOErrorf("read tasks: %w", err)
	}

	err = b.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'next_id'").Scan(&snap.NextID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, backend.IOErrorf("read next id: %w", err)
	}

	return snap, nil
}

// Save replaces the stored tasks and id counter in one transaction
func (b *Backend) Save(ctx context.Context, snap *backend.Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return backend.IOErrorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return backend.IOErrorf("clear tasks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tasks (id, position, name, due, recurrence, task_group, description, url, complete)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return backend.IOErrorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, t := range snap.Tasks {
		rule, err := ruleToNullString(t.Recurrence)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			t.ID, i, t.Name, timeToNullString(t.Due), rule,
			stringToNull(t.Group), stringToNull(t.Description), stringToNull(t.URL), t.Complete,
		)
		if err != nil {
			return backend.IOErrorf("insert task %d: %w", t.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES ('next_id', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		snap.NextID)
	if err != nil {
		return backend.IOErrorf("write next id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return backend.IOErrorf("commit: %w", err)
	}
	return nil
}

// timeToNullString converts a *time.Time to sql.NullString for database storage.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

func stringToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullToString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func ruleToNullString(r *recurrence.Rule) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, backend.FormatErrorf("encode recurrence: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// scanner is an interface satisfied by both *sql.Rows and *sql.Row
type scanner interface {
	Scan(dest ...any) error
}

// scanTask scans one task row and checks it against the task invariants
func scanTask(s scanner) (*backend.Task, error) {
	var t backend.Task
	var dueStr, ruleStr, groupStr, descStr, urlStr sql.NullString

	err := s.Scan(&t.ID, &t.Name, &dueStr, &ruleStr, &groupStr, &descStr, &urlStr, &t.Complete)
	if err != nil {
		return nil, backend.IOErrorf("scan task: %w", err)
	}

	if dueStr.Valid {
		parsed, err := time.Parse(time.RFC3339Nano, dueStr.String)
		if err != nil {
			return nil, backend.FormatErrorf("task %d: due %q: %w", t.ID, dueStr.String, err)
		}
		local := parsed.Local()
		t.Due = &local
	}
	if ruleStr.Valid {
		var rule recurrence.Rule
		if err := json.Unmarshal([]byte(ruleStr.String), &rule); err != nil {
			return nil, backend.FormatErrorf("task %d: recurrence: %w", t.ID, err)
		}
		t.Recurrence = &rule
	}
	t.Group = nullToString(groupStr)
	t.Description = nullToString(descStr)
	t.URL = nullToString(urlStr)

	if err := t.Validate(); err != nil {
		return nil, backend.FormatErrorf("task %d: %w", t.ID, err)
	}
	return &t, nil
}

// Close closes the database connection
func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Verify interface compliance at compile time
var _ backend.Storage = (*Backend)(nil)
