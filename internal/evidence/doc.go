// Package evidence turns a worker agent's free-form completion output into
// structured per-task evidence.
//
// The package is split along the boundary the rest of the engine depends on:
//
//   - parser.go is a pure text boundary. It scans a transcript for the
//     marker lines workers emit (TESTS_PASSED, NEW_TESTS_WRITTEN,
//     CRITICAL_COUNT/ADVISORY_COUNT with itemized findings) and returns
//     typed signals that are explicitly found, absent, or ambiguous. All
//     heuristic text matching lives here and nowhere else.
//
//   - recorder.go applies parsed signals to the task graph through a locked
//     store update.
//
// The semantics are conservative throughout: absence of a parseable signal
// is never treated as success. A missing test marker leaves tests_passed
// unresolved so the wave gate blocks; a missing review count marker yields
// review_status=evidence_capture_failed rather than passed; a count claiming
// findings that cannot be itemized synthesizes a placeholder critical
// finding so the wave stays blocked.
package evidence
