package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// IOError reports a failed durable write to the event log. Append failures
// are fatal to the owning loop: once a write is lost the log can no longer
// be trusted as the source of truth.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("event stream write to %s failed: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Stream is the append-only event log for one session. The stream assigns
// sequence numbers itself (starting at 0) so callers can neither create
// gaps nor duplicates. Every append is synced to disk before it returns.
//
// Exactly one writer owns a stream; reads may happen concurrently from any
// number of readers because the file is only ever appended to.
type Stream struct {
	path string

	mu      sync.Mutex
	f       *os.File
	nextSeq uint64
	subs    []func(Event)
}

// OpenStream opens (or creates) the event log at path for appending. If the
// file already holds events, sequencing resumes after the last complete
// record.
func OpenStream(path string) (*Stream, error) {
	events, err := ReadEvents(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}

	s := &Stream{path: path, f: f}
	if n := len(events); n > 0 {
		s.nextSeq = events[n-1].Sequence + 1
	}
	return s, nil
}

// Append durably writes one event and returns it with its assigned
// sequence number. On failure the stream's sequence counter is not
// advanced and the returned error wraps an *IOError.
func (s *Stream) Append(kind Kind, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event := Event{
		Sequence:  s.nextSeq,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Payload:   raw,
	}

	line, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode event: %w", err)
	}
	line = append(line, '\n')

	if _, err := s.f.Write(line); err != nil {
		return Event{}, &IOError{Path: s.path, Err: err}
	}
	// Persist before returning so a crash immediately after Append still
	// leaves the event readable for replay.
	if err := s.f.Sync(); err != nil {
		return Event{}, &IOError{Path: s.path, Err: err}
	}

	s.nextSeq++
	for _, fn := range s.subs {
		fn(event)
	}
	return event, nil
}

// Subscribe registers fn to be called after each successful append, in
// append order. Intended for live front ends and bus bridges; fn must not
// block.
func (s *Stream) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// ReadAll re-reads the full log from the start. Each call observes every
// event appended before it, in strictly increasing sequence order.
func (s *Stream) ReadAll() ([]Event, error) {
	return ReadEvents(s.path)
}

// Path returns the location of the underlying log file.
func (s *Stream) Path() string { return s.path }

// Close closes the underlying file. The stream must not be appended to
// afterwards.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// ReadEvents reads every complete event record from the log at path. A
// trailing record that does not parse (a crash mid-write) marks the end of
// the stream and is skipped; a malformed record followed by valid ones is
// corruption and reported as an error.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	truncated := false

	reader := bufio.NewReader(f)
	for {
		line, readErr := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)

		if len(line) > 0 {
			var event Event
			if err := json.Unmarshal(line, &event); err != nil {
				// Tolerated only if nothing valid follows.
				truncated = true
			} else {
				if truncated {
					return nil, fmt.Errorf("corrupt event record in %s before sequence %d", path, event.Sequence)
				}
				events = append(events, event)
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return events, nil
			}
			return nil, fmt.Errorf("error reading event stream: %w", readErr)
		}
	}
}
