package wavegate

import (
	"context"
	"fmt"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
	"github.com/riptide-sh/riptide/internal/logging"
	"github.com/riptide-sh/riptide/internal/store"
)

// Result reports the outcome of a successful TryComplete.
type Result struct {
	// Wave is the wave that was verified.
	Wave int

	// Promoted lists the task ids transitioned to completed by this call.
	// Empty when the wave had already been promoted by an earlier call.
	Promoted []string

	// AlreadyComplete is true when the wave was promoted previously and
	// this call was a no-op.
	AlreadyComplete bool

	// Terminal is true when this was the final wave: the graph is fully
	// executed and no next wave was opened.
	Terminal bool

	// NextWave is the newly opened wave, when Terminal is false.
	NextWave int
}

// Controller runs the wave promotion checkpoint.
type Controller struct {
	store store.Store
	log   *logging.Logger
}

// NewController creates a Controller backed by the given store.
func NewController(st store.Store, log *logging.Logger) *Controller {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Controller{store: st, log: log}
}

// TryComplete verifies every task in the wave and, only if all checks pass,
// atomically promotes the wave and opens the next one. wave <= 0 selects
// the graph's current wave.
//
// Failed checks return a *errors.GateNotReadyError listing the offending
// task ids; nothing is changed. Calling again after a successful promotion
// is a clean no-op with AlreadyComplete set.
func (c *Controller) TryComplete(ctx context.Context, wave int) (*Result, error) {
	var res *Result
	_, err := c.store.Update(ctx, func(g *graph.TaskGraph) error {
		r, err := c.tryCompleteLocked(g, wave)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Controller) tryCompleteLocked(g *graph.TaskGraph, wave int) (*Result, error) {
	if wave <= 0 {
		wave = g.CurrentWave
	}
	log := c.log.WithWave(wave)

	tasks := g.TasksInWave(wave)
	if len(tasks) == 0 {
		return nil, fmt.Errorf("wave %d has no tasks", wave)
	}
	if wave > g.CurrentWave {
		return nil, errors.Wrapf(errors.ErrWaveNotReached,
			"wave %d cannot complete before wave %d", wave, g.CurrentWave)
	}

	// An earlier promotion already advanced past this wave.
	if wave < g.CurrentWave || allCompleted(tasks) {
		log.Debug("wave already promoted, no-op")
		return &Result{Wave: wave, AlreadyComplete: true}, nil
	}

	// Read phase: the four gate checks, in order. Any failure returns with
	// zero state change.
	if ids := missingTests(tasks); len(ids) > 0 {
		return nil, &errors.GateNotReadyError{Wave: wave, Check: "tests", TaskIDs: ids}
	}
	if ids := missingNewTests(tasks); len(ids) > 0 {
		return nil, &errors.GateNotReadyError{Wave: wave, Check: "new_tests", TaskIDs: ids}
	}
	if ids := unconcludedReviews(tasks); len(ids) > 0 {
		return nil, &errors.GateNotReadyError{Wave: wave, Check: "reviews", TaskIDs: ids}
	}
	if ids := criticallyBlocked(tasks); len(ids) > 0 {
		return nil, &errors.GateNotReadyError{Wave: wave, Check: "critical_findings", TaskIDs: ids}
	}

	// Write phase: promote the wave.
	promoted := make([]string, 0, len(tasks))
	for _, t := range tasks {
		t.Status = graph.StatusCompleted
		t.ReviewStatus = graph.ReviewPassed
		promoted = append(promoted, t.ID)
	}

	gate := g.Gate(wave)
	gate.ImplComplete = true
	gate.ReviewsComplete = true
	gate.Blocked = false
	passed := true
	gate.TestsPassed = &passed

	res := &Result{Wave: wave, Promoted: promoted}
	if next := wave + 1; next <= g.MaxWave() {
		g.CurrentWave = next
		g.WaveGates[next] = &graph.WaveGate{}
		res.NextWave = next
		log.Info("wave promoted, next wave opened",
			"promoted", len(promoted), "next_wave", next)
	} else {
		res.Terminal = true
		log.Info("final wave promoted, graph fully executed",
			"promoted", len(promoted))
	}
	return res, nil
}

// ReportWaveTests records a wave-level test run outcome on the cached gate.
// This complements per-task evidence: an external test harness may run the
// whole wave's suite in one shot and report here.
func (c *Controller) ReportWaveTests(ctx context.Context, wave int, passed bool) error {
	_, err := c.store.Update(ctx, func(g *graph.TaskGraph) error {
		if wave <= 0 {
			wave = g.CurrentWave
		}
		if len(g.TasksInWave(wave)) == 0 {
			return fmt.Errorf("wave %d has no tasks", wave)
		}
		v := passed
		g.Gate(wave).TestsPassed = &v
		c.log.WithWave(wave).Info("wave test evidence reported", "passed", passed)
		return nil
	})
	return err
}

func allCompleted(tasks []*graph.Task) bool {
	for _, t := range tasks {
		if t.Status != graph.StatusCompleted {
			return false
		}
	}
	return true
}

func missingTests(tasks []*graph.Task) []string {
	var ids []string
	for _, t := range tasks {
		if t.TestsPassed == nil || !*t.TestsPassed {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func missingNewTests(tasks []*graph.Task) []string {
	var ids []string
	for _, t := range tasks {
		if !t.NewTestsSatisfied() {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func unconcludedReviews(tasks []*graph.Task) []string {
	var ids []string
	for _, t := range tasks {
		if !t.ReviewStatus.Concluded() {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func criticallyBlocked(tasks []*graph.Task) []string {
	var ids []string
	for _, t := range tasks {
		if len(t.CriticalFindings) > 0 {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
