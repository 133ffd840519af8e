// Package index maintains a SQLite catalog of sessions so listing and
// filtering does not require opening every event log on disk.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	goal        TEXT NOT NULL,
	status      TEXT NOT NULL,
	actions     INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);
`

// Entry is one catalogued session.
type Entry struct {
	ID         string
	Goal       string
	Status     string
	Actions    int
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// Index is the session catalog. It is derived data: the event logs stay
// authoritative, and a lost index can be rebuilt from them.
type Index struct {
	db *sql.DB
}

// Open opens or creates the catalog at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// RecordStart registers a session the moment its loop starts.
func (ix *Index) RecordStart(ctx context.Context, id, goal string, createdAt time.Time) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO sessions (id, goal, status, created_at)
		VALUES (?, ?, 'in_progress', ?)
		ON CONFLICT(id) DO UPDATE SET goal = excluded.goal`,
		id, goal, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("record session start: %w", err)
	}
	return nil
}

// RecordFinish stores the terminal status of a session.
func (ix *Index) RecordFinish(ctx context.Context, id, status string, actions int, finishedAt time.Time) error {
	_, err := ix.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, actions = ?, finished_at = ?
		WHERE id = ?`,
		status, actions, finishedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("record session finish: %w", err)
	}
	return nil
}

// List returns catalogued sessions, newest first.
func (ix *Index) List(ctx context.Context) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, goal, status, actions, created_at, finished_at
		FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var finished sql.NullTime
		if err := rows.Scan(&e.ID, &e.Goal, &e.Status, &e.Actions, &e.CreatedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			e.FinishedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one catalogued session.
func (ix *Index) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	var finished sql.NullTime
	err := ix.db.QueryRowContext(ctx, `
		SELECT id, goal, status, actions, created_at, finished_at
		FROM sessions WHERE id = ?`, id).
		Scan(&e.ID, &e.Goal, &e.Status, &e.Actions, &e.CreatedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not in index", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if finished.Valid {
		t := finished.Time
		e.FinishedAt = &t
	}
	return &e, nil
}

// Close releases the underlying database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}
