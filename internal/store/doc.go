// Package store persists the task graph for an orchestration run.
//
// The [Store] interface is the only way business logic touches durable
// state; the file-backed implementation is swapped for the in-memory one in
// tests. Every mutation goes through [Store.Update]: acquire the lock, read
// the current graph, apply the mutation in memory, write to a temp file,
// atomically rename into place, release the lock. Concurrent readers see
// either the old or the new committed document, never a partial write.
//
// At rest the state file is kept read-only (0444) and is only toggled
// writable inside the locked critical section, closing off accidental
// writers that bypass the lock entirely.
package store
