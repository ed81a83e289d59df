package dispatch

import (
	"testing"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
)

func testGraph() *graph.TaskGraph {
	g := graph.New()
	g.CurrentWave = 2
	g.Tasks = []graph.Task{
		{ID: "T1", Wave: 1, Status: graph.StatusCompleted},
		{ID: "T2", Wave: 1, Status: graph.StatusImplemented},
		{ID: "T3", Wave: 2, Status: graph.StatusPending, DependsOn: []string{"T1"}},
		{ID: "T4", Wave: 2, Status: graph.StatusPending, DependsOn: []string{"T1", "T2"}},
		{ID: "T5", Wave: 3, Status: graph.StatusPending, DependsOn: []string{"T3"}},
	}
	return g
}

func TestCanDispatch(t *testing.T) {
	tests := []struct {
		name       string
		taskID     string
		wantErr    error
		wantIncomp []string
	}{
		{
			name:   "dependencies completed, wave reached",
			taskID: "T3",
		},
		{
			name:   "unknown id is out of scope, allowed",
			taskID: "T99",
		},
		{
			name:    "future wave rejected",
			taskID:  "T5",
			wantErr: errors.ErrWaveNotReached,
		},
		{
			name:       "implemented dependency is not completed",
			taskID:     "T4",
			wantIncomp: []string{"T2"},
		},
	}

	g := testGraph()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanDispatch(g, tt.taskID)

			if tt.wantErr == nil && len(tt.wantIncomp) == 0 {
				if err != nil {
					t.Fatalf("CanDispatch(%s) = %v, want nil", tt.taskID, err)
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CanDispatch(%s) = %v, want %v", tt.taskID, err, tt.wantErr)
				}
				if !errors.IsNotReady(err) {
					t.Error("wave rejection should classify as not-ready")
				}
				return
			}

			var dep *errors.DependencyIncompleteError
			if !errors.As(err, &dep) {
				t.Fatalf("expected DependencyIncompleteError, got %v", err)
			}
			if len(dep.Incomplete) != len(tt.wantIncomp) {
				t.Fatalf("incomplete = %v, want %v", dep.Incomplete, tt.wantIncomp)
			}
			for i, id := range tt.wantIncomp {
				if dep.Incomplete[i] != id {
					t.Errorf("incomplete = %v, want %v", dep.Incomplete, tt.wantIncomp)
				}
			}
			if !errors.IsNotReady(err) {
				t.Error("dependency rejection should classify as not-ready")
			}
		})
	}
}

func TestCanDispatchMissingDependency(t *testing.T) {
	g := graph.New()
	g.CurrentWave = 2
	g.Tasks = []graph.Task{
		{ID: "T1", Wave: 2, Status: graph.StatusPending, DependsOn: []string{"T0"}},
	}

	var dep *errors.DependencyIncompleteError
	err := CanDispatch(g, "T1")
	if !errors.As(err, &dep) {
		t.Fatalf("expected DependencyIncompleteError for dangling dep, got %v", err)
	}
}

func TestDispatchable(t *testing.T) {
	g := graph.New()
	g.CurrentWave = 2
	g.Tasks = []graph.Task{
		{ID: "T1", Wave: 1, Status: graph.StatusCompleted},
		{ID: "T2", Wave: 2, Status: graph.StatusPending, DependsOn: []string{"T1"}},
		{ID: "T3", Wave: 2, Status: graph.StatusInProgress},
		{ID: "T4", Wave: 2, Status: graph.StatusFailed, RetryCount: 1},
		{ID: "T5", Wave: 2, Status: graph.StatusFailed, RetryCount: 2},
	}

	got := Dispatchable(g, 2)
	want := map[string]bool{"T2": true, "T4": true}
	if len(got) != len(want) {
		t.Fatalf("Dispatchable = %v, want T2 and T4", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected dispatchable task %s", id)
		}
	}
}
