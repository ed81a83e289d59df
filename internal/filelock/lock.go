package filelock

import (
	"context"
	"fmt"
	"time"

	"github.com/riptide-sh/riptide/internal/errors"
)

// Default acquisition budget: 50 attempts spaced 100ms apart.
const (
	DefaultAttempts = 50
	DefaultDelay    = 100 * time.Millisecond
)

// locker is a single non-blocking mutex attempt backend.
type locker interface {
	// tryLock attempts to acquire the lock without blocking.
	// Returns true if acquired, false if held elsewhere.
	tryLock() (bool, error)

	// unlock releases a previously acquired lock.
	unlock() error
}

// Manager acquires and releases the exclusive lock guarding one state file.
// It is cheap to construct; each Acquire opens the backend fresh so a
// Manager may be shared across short-lived handler invocations.
type Manager struct {
	path     string
	attempts int
	delay    time.Duration
	newLock  func(path string) locker
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetry overrides the acquisition retry budget.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(m *Manager) {
		if attempts > 0 {
			m.attempts = attempts
		}
		if delay > 0 {
			m.delay = delay
		}
	}
}

// WithDirLock forces the portable directory-mutex backend regardless of
// platform. Used in tests and on filesystems where flock is unreliable
// (e.g. some network mounts).
func WithDirLock() Option {
	return func(m *Manager) {
		m.newLock = func(path string) locker { return newDirLock(path) }
	}
}

// NewManager creates a lock manager for the lock file at path. The lock file
// is a sidecar of the state file, never the state file itself, so the state
// file can stay read-only at rest.
func NewManager(path string, opts ...Option) *Manager {
	m := &Manager{
		path:     path,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		newLock:  newPlatformLock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Guard represents a held lock. Release is idempotent and safe to defer.
type Guard struct {
	lk       locker
	released bool
}

// Release relinquishes the lock. Calling Release more than once is a no-op.
func (g *Guard) Release() error {
	if g == nil || g.released {
		return nil
	}
	g.released = true
	return g.lk.unlock()
}

// Acquire obtains the exclusive lock, polling up to the configured retry
// budget. It fails with errors.ErrLockTimeout once the budget is exhausted,
// or with ctx.Err() if the context is canceled first.
func (m *Manager) Acquire(ctx context.Context) (*Guard, error) {
	lk := m.newLock(m.path)

	for attempt := 0; attempt < m.attempts; attempt++ {
		ok, err := lk.tryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", m.path, err)
		}
		if ok {
			return &Guard{lk: lk}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}

	return nil, errors.Wrapf(errors.ErrLockTimeout,
		"lock %s held after %d attempts", m.path, m.attempts)
}
