// Package store owns the canonical in-memory object graph: users, sessions,
// channels, DMs, messages, notifications, reset codes and analytics series.
// Everything is keyed by id in canonical tables; membership is held as id
// sets resolved through the user table, so a profile edit is a single-point
// update. One mutex guards the whole graph: requests and scheduled tasks
// mutate it one at a time, and each sees the state left by the previous one.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

type Store struct {
	mu     sync.Mutex
	path   string
	data   *Data
	logger *zap.Logger
}

// New creates an empty store. path is the snapshot file; empty disables
// persistence (tests).
func New(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		data:   NewData(),
		logger: logger,
	}
}

// Restore loads the last snapshot, if one exists. A missing file is a fresh
// workspace, not an error. Last snapshot wins; there is no corruption
// recovery.
func (s *Store) Restore() error {
	if s.path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	d := NewData()
	if err := json.Unmarshal(raw, d); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
	s.logger.Info("snapshot restored", zap.String("path", s.path))
	return nil
}

// Update runs fn with exclusive access to the graph. fn must validate all
// preconditions before mutating so a failure leaves no partial change.
func (s *Store) Update(fn func(*Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// View runs fn with access to the graph. Reads share the same mutex as
// writes; a view always sees a consistent graph.
func (s *Store) View(fn func(*Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Flush writes the whole graph to the snapshot file, overwriting the
// previous snapshot. Called after every mutating request and after every
// scheduled task. Fire and forget: a failed flush is logged, not surfaced.
func (s *Store) Flush() {
	if s.path == "" {
		return
	}
	s.mu.Lock()
	raw, err := json.Marshal(s.data)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("encode snapshot", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		s.logger.Error("write snapshot", zap.Error(err))
	}
}

// Reset discards the entire graph and starts from an empty workspace.
func (s *Store) Reset() {
	s.mu.Lock()
	s.data = NewData()
	s.mu.Unlock()
}
