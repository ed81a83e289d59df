// Package crash converts unattributable worker failures into explicit task
// state.
//
// When a worker terminates and its transcript yields no parseable marker of
// any kind, the failure cannot be mapped to an individual task: partial or
// garbled output from a crashed process is not trustworthy evidence about
// anything it may have touched. The manager therefore fails every task that
// was in flight for the dispatch batch, not just the one the worker was
// nominally assigned. Each failure consumes retry budget; a task that
// exhausts it is surfaced as permanently failed for human intervention
// rather than retried forever.
package crash

import (
	"context"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
	"github.com/riptide-sh/riptide/internal/logging"
	"github.com/riptide-sh/riptide/internal/store"
)

// Manager applies crash containment and retry policy to the task graph.
type Manager struct {
	store      store.Store
	log        *logging.Logger
	maxRetries int
}

// NewManager creates a Manager. maxRetries is the number of re-dispatches
// permitted after failure.
func NewManager(st store.Store, log *logging.Logger, maxRetries int) *Manager {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Manager{store: st, log: log, maxRetries: maxRetries}
}

// BatchResult reports the effect of failing a dispatch batch.
type BatchResult struct {
	// Failed lists every task transitioned to failed, batch-wide.
	Failed []string

	// Exhausted lists the subset whose retry budget is now spent.
	Exhausted []string
}

// FailBatch marks every in-flight task as failed with the given reason and
// increments each task's retry count. Returns the affected ids.
func (m *Manager) FailBatch(ctx context.Context, reason string) (*BatchResult, error) {
	res := &BatchResult{}
	_, err := m.store.Update(ctx, func(g *graph.TaskGraph) error {
		inflight := g.InFlight()
		if len(inflight) == 0 {
			return errors.Wrap(errors.ErrCrashDetected, "no tasks in flight to fail")
		}
		waves := map[int]bool{}
		for _, t := range inflight {
			t.Status = graph.StatusFailed
			t.FailureReason = reason
			t.RetryCount++
			res.Failed = append(res.Failed, t.ID)
			if t.RetryCount >= m.maxRetries {
				res.Exhausted = append(res.Exhausted, t.ID)
			}
			waves[t.Wave] = true
		}
		for w := range waves {
			g.RefreshGate(w)
		}
		m.log.Error("dispatch batch failed",
			"reason", reason,
			"failed", len(res.Failed),
			"exhausted", len(res.Exhausted))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// MarkDispatched transitions a task to in_progress and records its start
// marker (typically the VCS revision at dispatch, used later to scope
// evidence to the task's own changes). A failed task may only be
// re-dispatched while retry budget remains.
func (m *Manager) MarkDispatched(ctx context.Context, taskID, startMarker string) error {
	_, err := m.store.Update(ctx, func(g *graph.TaskGraph) error {
		t := g.Task(taskID)
		if t == nil {
			return errors.Wrapf(errors.New("unknown task"), "dispatch %s", taskID)
		}
		switch t.Status {
		case graph.StatusPending:
		case graph.StatusFailed:
			if t.RetryCount >= m.maxRetries {
				return errors.Wrapf(errors.ErrRetryBudgetExceeded,
					"task %s failed %d times (max %d)", taskID, t.RetryCount, m.maxRetries)
			}
		default:
			return errors.Wrapf(errors.New("task not dispatchable"),
				"task %s is %s", taskID, t.Status)
		}
		t.Status = graph.StatusInProgress
		if startMarker != "" {
			t.StartMarker = startMarker
		}
		g.RefreshGate(t.Wave)
		m.log.WithTask(taskID).Info("task dispatched",
			"retry", t.RetryCount, "start_marker", startMarker)
		return nil
	})
	return err
}

// RetryBudget reports how many re-dispatches remain for a task, and whether
// the task is permanently failed.
func (m *Manager) RetryBudget(t *graph.Task) (remaining int, exhausted bool) {
	remaining = m.maxRetries - t.RetryCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining, t.Status == graph.StatusFailed && t.RetryCount >= m.maxRetries
}
