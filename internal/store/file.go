package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/filelock"
	"github.com/riptide-sh/riptide/internal/graph"
)

// File permissions: read-only at rest, writable only inside the critical
// section. See package doc.
const (
	modeAtRest   = os.FileMode(0444)
	modeWritable = os.FileMode(0644)
)

// FileStore persists the graph as a JSON document at Path, guarded by a
// sidecar lock managed by lock.
type FileStore struct {
	path string
	lock *filelock.Manager
}

// NewFileStore creates a store for the state file at path. The lock sidecar
// lives next to the state file as "<name>.lock".
func NewFileStore(path string, opts ...filelock.Option) *FileStore {
	return &FileStore{
		path: path,
		lock: filelock.NewManager(path+".lock", opts...),
	}
}

// Path returns the location of the state file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the committed graph without taking the mutation lock.
func (s *FileStore) Load(_ context.Context) (*graph.TaskGraph, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrStateNotFound
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return decode(data)
}

// Create initializes the state file with g. Fails with an error if the file
// already exists, so a run is never silently reinitialized.
func (s *FileStore) Create(ctx context.Context, g *graph.TaskGraph) error {
	guard, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = guard.Release() }()

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("state file %s already exists", s.path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat state file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	return s.commit(g)
}

// Update applies fn under the lock and commits atomically.
func (s *FileStore) Update(ctx context.Context, fn UpdateFunc) (*graph.TaskGraph, error) {
	guard, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = guard.Release() }()

	g, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := fn(g); err != nil {
		return nil, err
	}

	g.UpdatedAt = time.Now().UTC()
	if err := s.commit(g); err != nil {
		return nil, err
	}
	return g, nil
}

// commit serializes g and swaps it into place via temp-file + atomic rename.
// Must be called with the lock held.
func (s *FileStore) commit(g *graph.TaskGraph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, modeWritable); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Chmod(tmp, modeAtRest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	// The previous committed file is read-only; renaming over it only needs
	// write permission on the directory, so the at-rest mode never has to be
	// relaxed on the live file.
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// decode unmarshals a persisted graph, normalizing nil containers so callers
// never have to guard map/slice access.
func decode(data []byte) (*graph.TaskGraph, error) {
	var g graph.TaskGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if g.WaveGates == nil {
		g.WaveGates = make(map[int]*graph.WaveGate)
	}
	if g.PhaseArtifacts == nil {
		g.PhaseArtifacts = make(map[string]string)
	}
	if g.SkippedPhases == nil {
		g.SkippedPhases = []string{}
	}
	if g.Tasks == nil {
		g.Tasks = []graph.Task{}
	}
	return &g, nil
}
