// Package session provides session identity, workspace layout and the
// append-only event stream that is the sole durable state of a run.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// EventsFileName is the append-only event log inside a session directory.
const EventsFileName = "events.ndjson"

// WorkspaceDirName is the subdirectory tools use as their filesystem root.
const WorkspaceDirName = "workspace"

// Session is one goal-to-completion run. The struct is immutable after
// creation; all run state lives in the event stream.
type Session struct {
	ID        string    `json:"id"`
	Dir       string    `json:"dir"`
	Workspace string    `json:"workspace"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a session directory under root with a fresh timestamp-derived
// ID and an empty workspace subdirectory.
func New(root string) (*Session, error) {
	now := time.Now()
	id := generateID(now)

	dir := filepath.Join(root, id)
	workspace := filepath.Join(dir, WorkspaceDirName)
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session workspace: %w", err)
	}

	return &Session{
		ID:        id,
		Dir:       dir,
		Workspace: workspace,
		CreatedAt: now,
	}, nil
}

// Open returns the session stored under root with the given ID.
func Open(root, id string) (*Session, error) {
	dir := filepath.Join(root, id)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("session %s not found: %w", id, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("session %s: not a directory", id)
	}

	return &Session{
		ID:        id,
		Dir:       dir,
		Workspace: filepath.Join(dir, WorkspaceDirName),
		CreatedAt: info.ModTime(),
	}, nil
}

// EventsPath returns the path of the session's event log.
func (s *Session) EventsPath() string {
	return filepath.Join(s.Dir, EventsFileName)
}

// List returns the IDs of all sessions under root that have an event log,
// newest first.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, entry.Name(), EventsFileName)); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// generateID builds a timestamp-derived session ID. The random suffix keeps
// IDs unique when two sessions start within the same second.
func generateID(now time.Time) string {
	b := make([]byte, 3)
	rand.Read(b)
	return now.Format("20060102_150405") + "_" + hex.EncodeToString(b)
}
