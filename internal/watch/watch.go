// Package watch reports artifact creation in the specs directory.
//
// The engine itself is invoked per completion event and never polls; watch
// exists for runners that want to trigger a phase advance as soon as an
// agent drops its artifact, instead of waiting for the next hook
// invocation. Events are advisory: the phase machine re-verifies the
// artifact contract itself before committing anything.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/riptide-sh/riptide/internal/logging"
)

// ArtifactEvent reports a file appearing or changing in the specs directory.
type ArtifactEvent struct {
	// Path is the absolute path of the artifact.
	Path string

	// Name is the artifact's base name, e.g. "spec.md".
	Name string
}

// Watcher emits ArtifactEvents for the specs directory.
type Watcher struct {
	fsw    *fsnotify.Watcher
	log    *logging.Logger
	dir    string
	events chan ArtifactEvent
}

// New creates a Watcher over the given specs directory.
func New(specsDir string, log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.NopLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(specsDir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", specsDir, err)
	}
	return &Watcher{
		fsw:    fsw,
		log:    log,
		dir:    specsDir,
		events: make(chan ArtifactEvent, 16),
	}, nil
}

// Events returns the artifact event stream. Closed when Run returns.
func (w *Watcher) Events() <-chan ArtifactEvent {
	return w.events
}

// Run pumps filesystem events until ctx is canceled or the underlying
// watcher fails. Only create and write events are forwarded; renames and
// removals of artifacts do not advance anything.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			ae := ArtifactEvent{Path: ev.Name, Name: filepath.Base(ev.Name)}
			w.log.Debug("artifact event", "path", ae.Path, "op", ev.Op.String())
			select {
			case w.events <- ae:
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "err", err)
		}
	}
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
