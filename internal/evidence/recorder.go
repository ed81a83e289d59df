package evidence

import (
	"context"
	"fmt"
	"strings"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
	"github.com/riptide-sh/riptide/internal/logging"
	"github.com/riptide-sh/riptide/internal/store"
)

// Implementation-class roles produce code and must therefore produce test
// evidence. A completion from one of these with zero parseable markers is
// treated as a crash, not a pass.
var implementationRoles = map[string]bool{
	"implementer": true,
	"builder":     true,
	"fixer":       true,
}

// IsImplementationRole reports whether the agent role is implementation-class.
func IsImplementationRole(role string) bool {
	return implementationRoles[strings.ToLower(role)]
}

// IsReviewRole reports whether the agent role is expected to produce a
// structured review report.
func IsReviewRole(role string) bool {
	return strings.ToLower(role) == "reviewer"
}

// Recorder applies parsed worker evidence to the task graph.
type Recorder struct {
	store store.Store
	log   *logging.Logger
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(st store.Store, log *logging.Logger) *Recorder {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Recorder{store: st, log: log}
}

// RecordCompletion parses the worker's raw output and records the resulting
// evidence on the task, all inside one locked store update.
//
// Returns errors.ErrCrashDetected without touching the graph when an
// implementation-class worker produced no parseable marker of any kind;
// the caller routes that to the crash manager, which fails the whole
// dispatch batch.
//
// Re-processing an implementation completion for a task whose evidence is
// already terminal (new tests confirmed written) is a no-op.
func (r *Recorder) RecordCompletion(ctx context.Context, taskID, role, output string) (*graph.TaskGraph, error) {
	if IsImplementationRole(role) && !HasAnySignal(output) {
		r.log.Warn("no parseable evidence in completion",
			"task", taskID, "role", role)
		return nil, errors.Wrapf(errors.ErrCrashDetected,
			"task %s: %s transcript carried no markers", taskID, role)
	}

	tests := ParseTestSignal(output)
	newTests := ParseNewTestSignal(output)
	review := ParseReviewSignal(output)
	files := ParseFilesModified(output)

	return r.store.Update(ctx, func(g *graph.TaskGraph) error {
		task := g.Task(taskID)
		if task == nil {
			return fmt.Errorf("record evidence: task %s not in graph", taskID)
		}

		// Duplicate delivery of an implementation completion whose evidence
		// already reached its terminal state is a no-op. Review completions
		// still land: the reviewer runs after the implementer.
		if IsImplementationRole(role) && task.NewTestsWritten != nil && *task.NewTestsWritten {
			r.log.Debug("evidence already terminal, skipping", "task", taskID)
			return nil
		}

		applyTestSignal(task, tests)
		applyNewTestSignal(task, newTests)
		// An implementer transcript legitimately carries no review section;
		// only a reviewer completion may conclude (or fail to conclude) the
		// review. Findings that do appear are recorded regardless of role.
		if IsReviewRole(role) || review.Outcome != OutcomeAbsent {
			applyReviewSignal(task, review)
		}
		if len(files) > 0 {
			task.FilesModified = mergePaths(task.FilesModified, files)
		}

		if task.Status == graph.StatusPending || task.Status == graph.StatusInProgress {
			task.Status = graph.StatusImplemented
		}

		g.RefreshGate(task.Wave)
		r.log.Info("evidence recorded",
			"task", taskID,
			"role", role,
			"tests", tests.Outcome.String(),
			"new_tests", newTests.Outcome.String(),
			"review", review.Outcome.String())
		return nil
	})
}

// applyTestSignal records the test outcome. An absent marker leaves
// tests_passed unresolved so the wave gate blocks rather than passes.
func applyTestSignal(task *graph.Task, sig BoolSignal) {
	if sig.Outcome != OutcomeFound {
		return
	}
	v := sig.Value
	task.TestsPassed = &v
	if sig.Evidence != "" {
		task.TestEvidence = sig.Evidence
	}
}

// applyNewTestSignal records whether new assertions were added. Tasks with
// new_tests_required=false opted out at decomposition time; the signal is
// still recorded if present, it just is not demanded.
func applyNewTestSignal(task *graph.Task, sig BoolSignal) {
	if sig.Outcome != OutcomeFound {
		return
	}
	v := sig.Value
	task.NewTestsWritten = &v
	if sig.Evidence != "" {
		task.NewTestEvidence = sig.Evidence
	}
}

// applyReviewSignal records review findings with fail-closed semantics.
func applyReviewSignal(task *graph.Task, sig ReviewSignal) {
	switch sig.Outcome {
	case OutcomeAbsent:
		// Only downgrade a review that never concluded; a completion that
		// simply carries no review section (e.g. an implementer transcript)
		// must not erase an earlier reviewer verdict.
		if task.ReviewStatus == "" || task.ReviewStatus == graph.ReviewPending {
			task.ReviewStatus = graph.ReviewEvidenceCaptureFailed
		}

	case OutcomeAmbiguous:
		task.CriticalFindings = append(task.CriticalFindings, fmt.Sprintf(
			"review reported %d critical finding(s) but none could be parsed from the transcript",
			sig.CriticalCount))
		task.AdvisoryFindings = append(task.AdvisoryFindings, sig.Advisory...)
		task.ReviewStatus = graph.ReviewBlocked

	case OutcomeFound:
		task.CriticalFindings = append(task.CriticalFindings, sig.Critical...)
		task.AdvisoryFindings = append(task.AdvisoryFindings, sig.Advisory...)
		if len(task.CriticalFindings) > 0 {
			task.ReviewStatus = graph.ReviewBlocked
		} else {
			task.ReviewStatus = graph.ReviewPassed
		}
	}
}

// mergePaths appends new paths, keeping the existing order and dropping
// duplicates.
func mergePaths(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p] = true
	}
	for _, p := range incoming {
		if !seen[p] {
			seen[p] = true
			existing = append(existing, p)
		}
	}
	return existing
}
