// Package graph defines the core data types for a Riptide orchestration run.
//
// A run is represented by a single [TaskGraph]: the current planning phase,
// the active wave number, the full set of decomposed tasks, and the cached
// per-wave gate flags. The graph is the single source of truth; it is
// persisted by the store package and mutated only through locked
// read-modify-write cycles.
//
// These are pure data types with no I/O. Mutation helpers on [TaskGraph]
// keep the cached [WaveGate] flags consistent with per-task evidence so
// readers never have to recompute them.
package graph
