package graph

import "time"

// -----------------------------------------------------------------------------
// Phase Enum
// -----------------------------------------------------------------------------

// Phase represents one stage of the upstream planning pipeline.
//
// A run progresses through these phases in order:
//  1. PhaseInit - Fresh run, nothing produced yet
//  2. PhaseBrainstorm - Open-ended design exploration
//  3. PhaseSpecify - Writing the specification artifact
//  4. PhaseClarify - Resolving NEEDS-CLARIFICATION markers (may be skipped)
//  5. PhaseArchitecture - Producing the implementation plan
//  6. PhaseDecompose - Producing the validated task list
//  7. PhaseExecute - Per-task wave execution (terminal for the phase machine)
type Phase string

const (
	// PhaseInit is the starting phase of every run.
	PhaseInit Phase = "init"

	// PhaseBrainstorm indicates the brainstorm agent is exploring the problem.
	PhaseBrainstorm Phase = "brainstorm"

	// PhaseSpecify indicates the specification artifact is being written.
	PhaseSpecify Phase = "specify"

	// PhaseClarify indicates open questions in the specification are being
	// resolved. Skipped entirely when the marker count is at or below the
	// configured threshold.
	PhaseClarify Phase = "clarify"

	// PhaseArchitecture indicates the implementation plan is being produced.
	PhaseArchitecture Phase = "architecture"

	// PhaseDecompose indicates the objective is being split into waves of tasks.
	PhaseDecompose Phase = "decompose"

	// PhaseExecute indicates all further progress happens at the task level.
	// This is the terminal phase of the planning pipeline.
	PhaseExecute Phase = "execute"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true once the planning pipeline has handed off to
// task-level execution.
func (p Phase) IsTerminal() bool {
	return p == PhaseExecute
}

// IsValid returns true if this is a recognized phase value.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseInit, PhaseBrainstorm, PhaseSpecify, PhaseClarify,
		PhaseArchitecture, PhaseDecompose, PhaseExecute:
		return true
	default:
		return false
	}
}

// PhaseCompletedSentinel is stored in TaskGraph.PhaseArtifacts in place of an
// artifact path once a phase has concluded without a durable artifact.
const PhaseCompletedSentinel = "completed"

// -----------------------------------------------------------------------------
// Task Status
// -----------------------------------------------------------------------------

// TaskStatus represents the lifecycle state of a single task.
type TaskStatus string

const (
	// StatusPending means the task has been created but not dispatched.
	StatusPending TaskStatus = "pending"

	// StatusInProgress means a worker agent is currently assigned to the task.
	StatusInProgress TaskStatus = "in_progress"

	// StatusImplemented means the worker finished and evidence has been
	// recorded, but the wave gate has not yet promoted the task.
	StatusImplemented TaskStatus = "implemented"

	// StatusFailed means the worker crashed or evidence collection failed.
	// Failed tasks are eligible for re-dispatch while retry budget remains.
	StatusFailed TaskStatus = "failed"

	// StatusCompleted means the wave gate verified all evidence and promoted
	// the task. Completed is terminal.
	StatusCompleted TaskStatus = "completed"
)

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the task can no longer be dispatched.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// -----------------------------------------------------------------------------
// Review Status
// -----------------------------------------------------------------------------

// ReviewStatus represents the outcome of the review pass over a task.
type ReviewStatus string

const (
	// ReviewPending means no review evidence has been recorded yet.
	ReviewPending ReviewStatus = "pending"

	// ReviewPassed means the reviewer reported zero critical findings.
	ReviewPassed ReviewStatus = "passed"

	// ReviewBlocked means the reviewer reported at least one critical finding.
	ReviewBlocked ReviewStatus = "blocked"

	// ReviewEvidenceCaptureFailed means the reviewer's output carried no
	// parseable finding-count marker. Distinct from passed: the wave gate
	// treats it as unconcluded and refuses promotion.
	ReviewEvidenceCaptureFailed ReviewStatus = "evidence_capture_failed"
)

// String returns the string representation of the review status.
func (s ReviewStatus) String() string {
	return string(s)
}

// Concluded returns true once review has finished one way or another.
// evidence_capture_failed is not concluded: the review must be re-run.
func (s ReviewStatus) Concluded() bool {
	return s == ReviewPassed || s == ReviewBlocked
}

// -----------------------------------------------------------------------------
// Task
// -----------------------------------------------------------------------------

// Task is a single unit of work decomposed from the objective.
//
// Tasks are created in bulk during decomposition, with every wave known up
// front. They are never deleted, only transitioned. ID is the stable
// identity; Wave is immutable after creation.
type Task struct {
	// ID uniquely identifies the task within the graph (pattern: T<number>).
	ID string `json:"id"`

	// Description contains the instructions handed to the worker agent.
	Description string `json:"description"`

	// Agent is the role tag of the worker class that executes this task.
	Agent string `json:"agent"`

	// Wave is the parallel batch this task belongs to (>= 1). Immutable.
	Wave int `json:"wave"`

	// DependsOn lists task IDs that must be completed before dispatch.
	// All referenced tasks live in strictly earlier waves.
	DependsOn []string `json:"depends_on"`

	// Status is the lifecycle state of the task.
	Status TaskStatus `json:"status"`

	// RetryCount is the number of failed attempts so far.
	RetryCount int `json:"retry_count"`

	// FailureReason describes why the task last entered the failed state.
	FailureReason string `json:"failure_reason,omitempty"`

	// TestsPassed is the parsed test outcome. nil means no parseable test
	// marker has been seen; the wave gate treats nil as blocking.
	TestsPassed *bool `json:"tests_passed"`

	// TestEvidence is the free-text evidence accompanying the test marker.
	TestEvidence string `json:"test_evidence,omitempty"`

	// NewTestsRequired records whether this task must add new assertions.
	// Decided at decomposition time (e.g. false for pure renames), never
	// inferred afterwards.
	NewTestsRequired bool `json:"new_tests_required"`

	// NewTestsWritten is the parsed new-test outcome. nil means unresolved.
	NewTestsWritten *bool `json:"new_tests_written"`

	// NewTestEvidence is the free-text evidence for the new-test marker.
	NewTestEvidence string `json:"new_test_evidence,omitempty"`

	// ReviewStatus is the outcome of the review pass.
	ReviewStatus ReviewStatus `json:"review_status"`

	// CriticalFindings are review defects that unconditionally block the wave.
	CriticalFindings []string `json:"critical_findings"`

	// AdvisoryFindings are non-blocking review observations.
	AdvisoryFindings []string `json:"advisory_findings"`

	// FilesModified lists paths the worker reported touching.
	FilesModified []string `json:"files_modified,omitempty"`

	// StartMarker is an opaque checkpoint (typically a VCS revision) recorded
	// at dispatch, used to scope evidence collection to this task's changes.
	StartMarker string `json:"start_marker,omitempty"`
}

// CompletionSatisfied reports whether the task's evidence meets the bar for
// promotion to completed: tests passed, review passed with no critical
// findings, and the new-test obligation discharged or waived.
func (t *Task) CompletionSatisfied() bool {
	if t.TestsPassed == nil || !*t.TestsPassed {
		return false
	}
	if t.NewTestsRequired && (t.NewTestsWritten == nil || !*t.NewTestsWritten) {
		return false
	}
	return t.ReviewStatus == ReviewPassed && len(t.CriticalFindings) == 0
}

// NewTestsSatisfied reports whether the new-test obligation is discharged.
func (t *Task) NewTestsSatisfied() bool {
	if !t.NewTestsRequired {
		return true
	}
	return t.NewTestsWritten != nil && *t.NewTestsWritten
}

// -----------------------------------------------------------------------------
// Wave Gate
// -----------------------------------------------------------------------------

// WaveGate caches the aggregate readiness flags for one wave. The flags are
// derived from per-task fields but stored separately so status readers do not
// recompute them on every read.
type WaveGate struct {
	// ImplComplete is true once every task in the wave has evidence recorded.
	ImplComplete bool `json:"impl_complete"`

	// TestsPassed summarizes test evidence across the wave. nil until every
	// task has a resolved test outcome.
	TestsPassed *bool `json:"tests_passed"`

	// ReviewsComplete is true once the wave gate has resolved all reviews.
	ReviewsComplete bool `json:"reviews_complete"`

	// Blocked is true whenever any task in the wave has a critical finding.
	Blocked bool `json:"blocked"`
}

// -----------------------------------------------------------------------------
// Task Graph
// -----------------------------------------------------------------------------

// TaskGraph is the root aggregate for one orchestration run.
type TaskGraph struct {
	// CurrentPhase is the active planning phase.
	CurrentPhase Phase `json:"current_phase"`

	// CurrentWave is the wave currently eligible for dispatch.
	// Monotonically non-decreasing.
	CurrentWave int `json:"current_wave"`

	// Tasks holds every decomposed task in creation order.
	Tasks []Task `json:"tasks"`

	// WaveGates maps wave number to its cached gate flags.
	WaveGates map[int]*WaveGate `json:"wave_gates"`

	// PhaseArtifacts maps a phase name to its artifact path, or to
	// PhaseCompletedSentinel once the phase concluded.
	PhaseArtifacts map[string]string `json:"phase_artifacts"`

	// SkippedPhases lists phases bypassed by policy, e.g. clarify when the
	// specification carried few enough open markers.
	SkippedPhases []string `json:"skipped_phases"`

	// CreatedAt records when the run was initialized.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt records the last committed mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty graph in the init phase with wave 1 open.
func New() *TaskGraph {
	now := time.Now().UTC()
	return &TaskGraph{
		CurrentPhase:   PhaseInit,
		CurrentWave:    1,
		Tasks:          []Task{},
		WaveGates:      map[int]*WaveGate{1: {}},
		PhaseArtifacts: map[string]string{},
		SkippedPhases:  []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
