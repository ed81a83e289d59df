// Package wavegate promotes waves of tasks to completed.
//
// TryComplete is the single place where all of a wave's invariants are
// enforced together: every task must have passing tests, a discharged or
// waived new-test obligation, a concluded review, and zero critical
// findings. The four checks are a pure read phase; only when all pass does
// the write phase run, promoting every task, resolving residual pending
// reviews, updating the cached gate flags, and opening the next wave. Read
// and write happen inside one locked store update so a concurrent evidence
// write can never interleave between them.
//
// A failed check returns a GateNotReadyError naming the offending task ids
// and changes nothing; callers retry after more evidence arrives.
package wavegate
