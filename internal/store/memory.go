package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
)

// MemStore is an in-memory Store for tests. It applies the same
// copy-on-read/copy-on-write semantics as the file store: callers never
// share memory with the committed graph.
type MemStore struct {
	mu sync.Mutex
	g  *graph.TaskGraph
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns a deep copy of the committed graph.
func (s *MemStore) Load(_ context.Context) (*graph.TaskGraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.g == nil {
		return nil, errors.ErrStateNotFound
	}
	return clone(s.g)
}

// Create initializes the store with a copy of g.
func (s *MemStore) Create(_ context.Context, g *graph.TaskGraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.g != nil {
		return errors.New("state already exists")
	}
	c, err := clone(g)
	if err != nil {
		return err
	}
	s.g = c
	return nil
}

// Update applies fn to a copy of the graph and commits it if fn succeeds.
func (s *MemStore) Update(_ context.Context, fn UpdateFunc) (*graph.TaskGraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.g == nil {
		return nil, errors.ErrStateNotFound
	}
	working, err := clone(s.g)
	if err != nil {
		return nil, err
	}
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now().UTC()
	s.g = working

	// Hand the caller its own copy so post-commit mutations cannot leak in.
	return clone(working)
}

// clone deep-copies a graph through its JSON representation, which also
// keeps the in-memory store honest about what actually round-trips to disk.
func clone(g *graph.TaskGraph) (*graph.TaskGraph, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return decode(data)
}
