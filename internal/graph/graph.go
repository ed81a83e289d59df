package graph

import "sort"

// Task returns a pointer to the task with the given ID, or nil if the graph
// does not contain it. The pointer aliases the graph's backing slice, so
// mutations through it are visible to subsequent reads.
func (g *TaskGraph) Task(id string) *Task {
	for i := range g.Tasks {
		if g.Tasks[i].ID == id {
			return &g.Tasks[i]
		}
	}
	return nil
}

// TasksInWave returns pointers to every task assigned to the given wave,
// in creation order.
func (g *TaskGraph) TasksInWave(wave int) []*Task {
	var out []*Task
	for i := range g.Tasks {
		if g.Tasks[i].Wave == wave {
			out = append(out, &g.Tasks[i])
		}
	}
	return out
}

// MaxWave returns the highest wave number assigned to any task, or 0 for an
// empty graph.
func (g *TaskGraph) MaxWave() int {
	max := 0
	for i := range g.Tasks {
		if g.Tasks[i].Wave > max {
			max = g.Tasks[i].Wave
		}
	}
	return max
}

// InFlight returns pointers to every task currently marked in_progress.
func (g *TaskGraph) InFlight() []*Task {
	var out []*Task
	for i := range g.Tasks {
		if g.Tasks[i].Status == StatusInProgress {
			out = append(out, &g.Tasks[i])
		}
	}
	return out
}

// Gate returns the gate record for the wave, creating an empty one if needed.
func (g *TaskGraph) Gate(wave int) *WaveGate {
	if g.WaveGates == nil {
		g.WaveGates = make(map[int]*WaveGate)
	}
	gate, ok := g.WaveGates[wave]
	if !ok {
		gate = &WaveGate{}
		g.WaveGates[wave] = gate
	}
	return gate
}

// PhaseSkipped reports whether the named phase was bypassed by policy.
func (g *TaskGraph) PhaseSkipped(phase Phase) bool {
	for _, p := range g.SkippedPhases {
		if p == string(phase) {
			return true
		}
	}
	return false
}

// MarkPhaseSkipped records the phase in SkippedPhases, idempotently.
func (g *TaskGraph) MarkPhaseSkipped(phase Phase) {
	if g.PhaseSkipped(phase) {
		return
	}
	g.SkippedPhases = append(g.SkippedPhases, string(phase))
}

// RefreshGate recomputes the cached gate flags for a wave from per-task
// evidence. Callers mutate tasks first, then refresh, so readers of
// WaveGates always see flags consistent with the committed task state.
func (g *TaskGraph) RefreshGate(wave int) {
	gate := g.Gate(wave)
	tasks := g.TasksInWave(wave)
	if len(tasks) == 0 {
		return
	}

	implComplete := true
	blocked := false
	allResolved := true
	allPassed := true
	anyFailed := false

	for _, t := range tasks {
		if t.Status == StatusPending || t.Status == StatusInProgress {
			implComplete = false
		}
		if len(t.CriticalFindings) > 0 {
			blocked = true
		}
		switch {
		case t.TestsPassed == nil:
			allResolved = false
		case !*t.TestsPassed:
			anyFailed = true
			allPassed = false
		}
	}

	gate.ImplComplete = implComplete
	gate.Blocked = blocked
	switch {
	case anyFailed:
		f := false
		gate.TestsPassed = &f
	case allResolved && allPassed:
		tr := true
		gate.TestsPassed = &tr
	default:
		gate.TestsPassed = nil
	}
}

// Waves returns every wave number that has at least one task, ascending.
func (g *TaskGraph) Waves() []int {
	seen := make(map[int]bool)
	for i := range g.Tasks {
		seen[g.Tasks[i].Wave] = true
	}
	waves := make([]int, 0, len(seen))
	for w := range seen {
		waves = append(waves, w)
	}
	sort.Ints(waves)
	return waves
}
