// Package errors provides centralized error definitions for the Riptide
// orchestration engine. It defines sentinel errors for the engine's failure
// taxonomy, semantic error types carrying the specific ids a caller needs to
// act on a rejection, and classification helpers.
//
// # Taxonomy
//
// Readiness rejections are expected, local outcomes the caller retries later:
//   - ErrWaveNotReached, DependencyIncompleteError, GateNotReadyError
//
// Evidence ambiguity always fails closed:
//   - EvidenceParseError (kind absent or ambiguous)
//
// Operational and policy failures:
//   - ErrLockTimeout, ErrArtifactMissing, ErrCrashDetected,
//     ErrRetryBudgetExceeded, SchemaError
//
// # Usage
//
//	if errors.IsNotReady(err) {
//	    // informative, no state changed; retry after more evidence arrives
//	}
//	var gate *errors.GateNotReadyError
//	if errors.As(err, &gate) {
//	    fmt.Println(gate.TaskIDs)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions so callers can import only this
// package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrLockTimeout indicates the state lock could not be acquired within
	// the configured retry budget. Surfaced as an operational error: it
	// implies sustained contention or a stuck lock holder.
	ErrLockTimeout = New("state lock acquisition timed out")

	// ErrWaveNotReached indicates a task's wave is later than the graph's
	// current wave.
	ErrWaveNotReached = New("task wave not reached")

	// ErrArtifactMissing indicates a phase transition was attempted but the
	// required artifact does not exist at the expected location.
	ErrArtifactMissing = New("required phase artifact missing")

	// ErrCrashDetected indicates a worker terminated with no parseable
	// output of any kind.
	ErrCrashDetected = New("worker crash detected")

	// ErrRetryBudgetExceeded indicates a failed task has exhausted its
	// retries and requires human intervention.
	ErrRetryBudgetExceeded = New("retry budget exceeded")

	// ErrStateNotFound indicates no state file exists for the run.
	ErrStateNotFound = New("orchestration state not found")

	// ErrGraphComplete indicates every wave in the graph has been executed.
	ErrGraphComplete = New("all waves completed")
)

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// DependencyIncompleteError reports a dispatch rejection: the task depends on
// tasks that have not reached completed.
type DependencyIncompleteError struct {
	TaskID     string
	Incomplete []string // dependency ids not yet completed
}

// Error returns the formatted error message.
func (e *DependencyIncompleteError) Error() string {
	return fmt.Sprintf("task %s has incomplete dependencies: %s",
		e.TaskID, strings.Join(e.Incomplete, ", "))
}

// Is matches any other DependencyIncompleteError.
func (e *DependencyIncompleteError) Is(target error) bool {
	_, ok := target.(*DependencyIncompleteError)
	return ok
}

// GateNotReadyError reports a wave-completion rejection. No state was
// changed; Check names the failed verification and TaskIDs lists the
// offending tasks so a retry loop can act without re-deriving state.
type GateNotReadyError struct {
	Wave    int
	Check   string // "tests", "new_tests", "reviews", "critical_findings"
	TaskIDs []string
}

// Error returns the formatted error message.
func (e *GateNotReadyError) Error() string {
	return fmt.Sprintf("wave %d not ready: %s check failed for [%s]",
		e.Wave, e.Check, strings.Join(e.TaskIDs, ", "))
}

// Is matches any other GateNotReadyError.
func (e *GateNotReadyError) Is(target error) bool {
	_, ok := target.(*GateNotReadyError)
	return ok
}

// ParseFailureKind distinguishes the two flavors of evidence parse failure.
type ParseFailureKind string

const (
	// ParseAbsent means no marker of the expected shape was found at all.
	ParseAbsent ParseFailureKind = "absent"

	// ParseAmbiguous means a marker was found but its payload could not be
	// reconciled with its claim (e.g. a count of N>0 with no parsed items).
	ParseAmbiguous ParseFailureKind = "ambiguous"
)

// EvidenceParseError reports that a worker's raw output could not be turned
// into structured evidence. The engine never resolves this optimistically.
type EvidenceParseError struct {
	TaskID string
	Signal string // "tests", "new_tests", "review"
	Kind   ParseFailureKind
	Detail string
}

// Error returns the formatted error message.
func (e *EvidenceParseError) Error() string {
	msg := fmt.Sprintf("evidence parse failure (%s) for %s signal", e.Kind, e.Signal)
	if e.TaskID != "" {
		msg = fmt.Sprintf("%s on task %s", msg, e.TaskID)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

// Is matches any other EvidenceParseError.
func (e *EvidenceParseError) Is(target error) bool {
	_, ok := target.(*EvidenceParseError)
	return ok
}

// SchemaError reports validation failure of an external input (typically a
// decomposition artifact) with the full list of violations found.
type SchemaError struct {
	Subject    string
	Violations []string
}

// Error returns the formatted error message.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s failed validation: %s",
		e.Subject, strings.Join(e.Violations, "; "))
}

// Is matches any other SchemaError.
func (e *SchemaError) Is(target error) bool {
	_, ok := target.(*SchemaError)
	return ok
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsNotReady returns true for expected, non-fatal readiness rejections: the
// caller changed nothing and should simply retry later.
func IsNotReady(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrWaveNotReached) {
		return true
	}
	var dep *DependencyIncompleteError
	var gate *GateNotReadyError
	return As(err, &dep) || As(err, &gate)
}

// IsRetryable returns true for transient conditions that may succeed on a
// later attempt without human intervention.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrCrashDetected) {
		return true
	}
	return IsNotReady(err)
}

// IsOperational returns true for failures that require external
// investigation rather than an automatic retry.
func IsOperational(err error) bool {
	return Is(err, ErrLockTimeout) || Is(err, ErrRetryBudgetExceeded)
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
