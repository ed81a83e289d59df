// Package dispatch decides whether a task is eligible to run right now.
//
// CanDispatch is a pure function over a graph snapshot: it has no side
// effects and callers decide what to do with a rejection (typically block
// the dispatch and retry after the next wave promotion).
package dispatch

import (
	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
)

// CanDispatch reports whether the task may be handed to a worker agent.
//
// Rules, in order:
//  1. An unknown id is allowed: work outside the graph is out of scope for
//     orchestration, not an error.
//  2. A task in a later wave than the graph's current wave is rejected with
//     errors.ErrWaveNotReached.
//  3. Every dependency must be completed; otherwise the rejection lists the
//     incomplete ids.
func CanDispatch(g *graph.TaskGraph, taskID string) error {
	task := g.Task(taskID)
	if task == nil {
		return nil
	}

	if task.Wave > g.CurrentWave {
		return errors.Wrapf(errors.ErrWaveNotReached,
			"task %s is in wave %d, current wave is %d", taskID, task.Wave, g.CurrentWave)
	}

	var incomplete []string
	for _, depID := range task.DependsOn {
		dep := g.Task(depID)
		if dep == nil || dep.Status != graph.StatusCompleted {
			incomplete = append(incomplete, depID)
		}
	}
	if len(incomplete) > 0 {
		return &errors.DependencyIncompleteError{TaskID: taskID, Incomplete: incomplete}
	}
	return nil
}

// Dispatchable returns the ids of every task in the current wave that passes
// CanDispatch and is still pending or failed with retry budget remaining.
func Dispatchable(g *graph.TaskGraph, maxRetries int) []string {
	var out []string
	for _, t := range g.TasksInWave(g.CurrentWave) {
		switch t.Status {
		case graph.StatusPending:
		case graph.StatusFailed:
			if t.RetryCount >= maxRetries {
				continue
			}
		default:
			continue
		}
		if CanDispatch(g, t.ID) == nil {
			out = append(out, t.ID)
		}
	}
	return out
}
