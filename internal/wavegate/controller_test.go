package wavegate

import (
	"context"
	"fmt"
	"testing"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
	"github.com/riptide-sh/riptide/internal/store"
)

func boolPtr(v bool) *bool { return &v }

// readyTask returns a task whose evidence fully satisfies the gate.
func readyTask(id string, wave int) graph.Task {
	return graph.Task{
		ID:               id,
		Wave:             wave,
		Status:           graph.StatusImplemented,
		TestsPassed:      boolPtr(true),
		NewTestsRequired: true,
		NewTestsWritten:  boolPtr(true),
		ReviewStatus:     graph.ReviewPassed,
		CriticalFindings: []string{},
	}
}

func seedController(t *testing.T, tasks ...graph.Task) (*Controller, *store.MemStore) {
	t.Helper()
	g := graph.New()
	g.CurrentPhase = graph.PhaseExecute
	g.Tasks = tasks
	s := store.NewMemStore()
	if err := s.Create(context.Background(), g); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return NewController(s, nil), s
}

func TestTryCompletePromotesAndOpensNextWave(t *testing.T) {
	ctrl, s := seedController(t,
		readyTask("T1", 1),
		readyTask("T2", 1),
		graph.Task{ID: "T3", Wave: 2, Status: graph.StatusPending},
	)
	ctx := context.Background()

	res, err := ctrl.TryComplete(ctx, 1)
	if err != nil {
		t.Fatalf("TryComplete: %v", err)
	}
	if res.Terminal {
		t.Error("wave 1 is not the last wave")
	}
	if res.NextWave != 2 {
		t.Errorf("NextWave = %d, want 2", res.NextWave)
	}
	if len(res.Promoted) != 2 {
		t.Errorf("Promoted = %v, want T1 T2", res.Promoted)
	}

	g, _ := s.Load(ctx)
	if g.CurrentWave != 2 {
		t.Errorf("CurrentWave = %d, want 2", g.CurrentWave)
	}
	for _, id := range []string{"T1", "T2"} {
		if got := g.Task(id).Status; got != graph.StatusCompleted {
			t.Errorf("%s status = %s, want completed", id, got)
		}
	}
	gate := g.Gate(1)
	if !gate.ImplComplete || !gate.ReviewsComplete || gate.Blocked {
		t.Errorf("wave 1 gate flags wrong: %+v", gate)
	}
	if gate.TestsPassed == nil || !*gate.TestsPassed {
		t.Error("wave 1 gate tests_passed should be true")
	}
	// The next wave opens with a fresh, unresolved gate.
	next := g.Gate(2)
	if next.ImplComplete || next.TestsPassed != nil || next.ReviewsComplete || next.Blocked {
		t.Errorf("wave 2 gate should be fresh: %+v", next)
	}
}

func TestTryCompleteTerminalWave(t *testing.T) {
	ctrl, s := seedController(t, readyTask("T1", 1))
	ctx := context.Background()

	res, err := ctrl.TryComplete(ctx, 1)
	if err != nil {
		t.Fatalf("TryComplete: %v", err)
	}
	if !res.Terminal {
		t.Error("single-wave graph should complete terminally")
	}

	g, _ := s.Load(ctx)
	if g.CurrentWave != 1 {
		t.Errorf("terminal completion must not open a phantom wave, got %d", g.CurrentWave)
	}
}

func TestTryCompleteGateChecks(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(t *graph.Task)
		wantCheck string
	}{
		{
			name:      "unresolved tests",
			mutate:    func(t *graph.Task) { t.TestsPassed = nil },
			wantCheck: "tests",
		},
		{
			name:      "failed tests",
			mutate:    func(t *graph.Task) { t.TestsPassed = boolPtr(false) },
			wantCheck: "tests",
		},
		{
			name:      "new test obligation outstanding",
			mutate:    func(t *graph.Task) { t.NewTestsWritten = nil },
			wantCheck: "new_tests",
		},
		{
			name:      "new tests explicitly not written",
			mutate:    func(t *graph.Task) { t.NewTestsWritten = boolPtr(false) },
			wantCheck: "new_tests",
		},
		{
			name:      "review pending",
			mutate:    func(t *graph.Task) { t.ReviewStatus = graph.ReviewPending },
			wantCheck: "reviews",
		},
		{
			name:      "review evidence capture failed is not concluded",
			mutate:    func(t *graph.Task) { t.ReviewStatus = graph.ReviewEvidenceCaptureFailed },
			wantCheck: "reviews",
		},
		{
			name: "critical findings",
			mutate: func(t *graph.Task) {
				t.ReviewStatus = graph.ReviewBlocked
				t.CriticalFindings = []string{"shared state mutated without lock"}
			},
			wantCheck: "reviews",
		},
		{
			name: "critical findings on a passed review",
			mutate: func(t *graph.Task) {
				t.CriticalFindings = []string{"placeholder finding"}
			},
			wantCheck: "critical_findings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := readyTask("T2", 1)
			tt.mutate(&bad)
			ctrl, s := seedController(t, readyTask("T1", 1), bad)
			ctx := context.Background()

			_, err := ctrl.TryComplete(ctx, 1)
			var gate *errors.GateNotReadyError
			if !errors.As(err, &gate) {
				t.Fatalf("expected GateNotReadyError, got %v", err)
			}
			if gate.Check != tt.wantCheck {
				t.Errorf("Check = %s, want %s", gate.Check, tt.wantCheck)
			}
			if len(gate.TaskIDs) != 1 || gate.TaskIDs[0] != "T2" {
				t.Errorf("TaskIDs = %v, want [T2]", gate.TaskIDs)
			}
			if !errors.IsNotReady(err) {
				t.Error("gate rejection should classify as not-ready")
			}

			// A rejected gate changes nothing.
			g, _ := s.Load(ctx)
			if g.CurrentWave != 1 {
				t.Errorf("rejected gate moved the wave to %d", g.CurrentWave)
			}
			if g.Task("T1").Status != graph.StatusImplemented {
				t.Error("rejected gate mutated a sibling task")
			}
		})
	}
}

func TestTryCompleteNewTestsWaived(t *testing.T) {
	waived := readyTask("T1", 1)
	waived.NewTestsRequired = false
	waived.NewTestsWritten = nil
	ctrl, _ := seedController(t, waived)

	res, err := ctrl.TryComplete(context.Background(), 1)
	if err != nil {
		t.Fatalf("TryComplete with waived new-test obligation: %v", err)
	}
	if len(res.Promoted) != 1 {
		t.Errorf("Promoted = %v", res.Promoted)
	}
}

func TestTryCompleteIdempotent(t *testing.T) {
	ctrl, _ := seedController(t,
		readyTask("T1", 1),
		graph.Task{ID: "T2", Wave: 2, Status: graph.StatusPending},
	)
	ctx := context.Background()

	if _, err := ctrl.TryComplete(ctx, 1); err != nil {
		t.Fatalf("first TryComplete: %v", err)
	}

	res, err := ctrl.TryComplete(ctx, 1)
	if err != nil {
		t.Fatalf("second TryComplete: %v", err)
	}
	if !res.AlreadyComplete {
		t.Error("second completion of the same wave should be a no-op")
	}
	if len(res.Promoted) != 0 {
		t.Errorf("no-op promoted %v", res.Promoted)
	}
}

func TestTryCompleteFutureWaveRejected(t *testing.T) {
	ctrl, _ := seedController(t,
		readyTask("T1", 1),
		readyTask("T2", 2),
	)

	_, err := ctrl.TryComplete(context.Background(), 2)
	if !errors.Is(err, errors.ErrWaveNotReached) {
		t.Fatalf("expected ErrWaveNotReached, got %v", err)
	}
}

func TestTryCompleteDefaultsToCurrentWave(t *testing.T) {
	ctrl, s := seedController(t, readyTask("T1", 1))

	res, err := ctrl.TryComplete(context.Background(), 0)
	if err != nil {
		t.Fatalf("TryComplete(0): %v", err)
	}
	if res.Wave != 1 {
		t.Errorf("Wave = %d, want 1", res.Wave)
	}

	g, _ := s.Load(context.Background())
	if g.Task("T1").Status != graph.StatusCompleted {
		t.Error("current-wave completion did not promote")
	}
}

func TestTryCompleteEmptyWave(t *testing.T) {
	ctrl, _ := seedController(t, readyTask("T1", 1))
	if _, err := ctrl.TryComplete(context.Background(), 7); err == nil {
		t.Fatal("expected error for a wave with no tasks")
	}
}

func TestReportWaveTests(t *testing.T) {
	ctrl, s := seedController(t, readyTask("T1", 1))
	ctx := context.Background()

	if err := ctrl.ReportWaveTests(ctx, 1, false); err != nil {
		t.Fatalf("ReportWaveTests: %v", err)
	}

	g, _ := s.Load(ctx)
	gate := g.Gate(1)
	if gate.TestsPassed == nil || *gate.TestsPassed {
		t.Error("wave test failure not recorded on the gate")
	}

	if err := ctrl.ReportWaveTests(ctx, 9, true); err == nil {
		t.Error("expected error for a wave with no tasks")
	}
}

// Gate soundness: whatever single piece of evidence is missing, the wave
// must not promote. Exercises each evidence dimension independently across
// a range of wave sizes.
func TestGateSoundness(t *testing.T) {
	breakers := []struct {
		name   string
		mutate func(t *graph.Task)
	}{
		{"tests unresolved", func(t *graph.Task) { t.TestsPassed = nil }},
		{"tests failed", func(t *graph.Task) { t.TestsPassed = boolPtr(false) }},
		{"new tests unresolved", func(t *graph.Task) { t.NewTestsWritten = nil }},
		{"review unconcluded", func(t *graph.Task) { t.ReviewStatus = graph.ReviewEvidenceCaptureFailed }},
		{"critical finding", func(t *graph.Task) { t.CriticalFindings = []string{"x"} }},
	}

	for size := 1; size <= 4; size++ {
		for victim := 0; victim < size; victim++ {
			for _, br := range breakers {
				name := fmt.Sprintf("size=%d victim=%d %s", size, victim, br.name)
				t.Run(name, func(t *testing.T) {
					tasks := make([]graph.Task, size)
					for i := range tasks {
						tasks[i] = readyTask(fmt.Sprintf("T%d", i+1), 1)
					}
					br.mutate(&tasks[victim])

					ctrl, s := seedController(t, tasks...)
					_, err := ctrl.TryComplete(context.Background(), 1)
					if err == nil {
						t.Fatal("gate promoted a wave with missing evidence")
					}

					g, _ := s.Load(context.Background())
					for _, task := range g.Tasks {
						if task.Status == graph.StatusCompleted {
							t.Errorf("task %s completed despite a failed gate", task.ID)
						}
					}
				})
			}
		}
	}
}
