// Package filelock provides cross-process mutual exclusion for the Riptide
// state store.
//
// Every mutation of the shared state file runs inside an acquire → read →
// modify → write-temp → rename → release cycle. Multiple worker completions
// can race to record evidence at the same moment, so the lock must work
// across independent processes, not just goroutines.
//
// # Backends
//
// On Unix the lock is a kernel flock(2) exclusive lock on a sidecar lock
// file. Elsewhere, atomic directory creation (os.Mkdir on a ".lock.d"
// directory) serves as the mutex primitive, so the same orchestration logic
// runs identically across host operating systems.
//
// # Acquisition
//
// [Manager.Acquire] polls with a bounded retry budget (attempts × delay,
// configurable) and returns errors.ErrLockTimeout rather than hanging
// forever. The returned [Guard] must be released on every exit path:
//
//	guard, err := mgr.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer guard.Release()
package filelock
