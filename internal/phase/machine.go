package phase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
	"github.com/riptide-sh/riptide/internal/logging"
	"github.com/riptide-sh/riptide/internal/store"
)

// Artifact filenames expected under the specs directory.
const (
	BrainstormArtifact = "brainstorm.md"
	SpecArtifact       = "spec.md"
	PlanArtifact       = "plan.md"
)

// ClarificationMarker is counted in the specification artifact to decide
// whether the clarify phase is required.
const ClarificationMarker = "NEEDS-CLARIFICATION"

// Machine advances the planning phase of a run.
type Machine struct {
	store            store.Store
	log              *logging.Logger
	specsDir         string
	clarifyThreshold int
	containment      glob.Glob
}

// NewMachine creates a phase machine. specsDir is the directory every phase
// artifact must live under; clarifyThreshold is the maximum marker count at
// which clarify may be skipped.
func NewMachine(st store.Store, log *logging.Logger, specsDir string, clarifyThreshold int) *Machine {
	if log == nil {
		log = logging.NopLogger()
	}
	clean := filepath.Clean(specsDir)
	return &Machine{
		store:            st,
		log:              log,
		specsDir:         clean,
		clarifyThreshold: clarifyThreshold,
		containment:      glob.MustCompile(clean+string(filepath.Separator)+"**", filepath.Separator),
	}
}

// ArtifactPath returns where the artifact for the given phase must live.
func (m *Machine) ArtifactPath(p graph.Phase) string {
	switch p {
	case graph.PhaseBrainstorm:
		return filepath.Join(m.specsDir, BrainstormArtifact)
	case graph.PhaseSpecify, graph.PhaseClarify:
		return filepath.Join(m.specsDir, SpecArtifact)
	case graph.PhaseArchitecture:
		return filepath.Join(m.specsDir, PlanArtifact)
	default:
		return ""
	}
}

// Advance attempts to move the pipeline forward after the agent serving the
// current phase completes. role is recorded for the audit log only; the
// decision rests entirely on the artifact contract. Returns the phase in
// effect after the call, which is unchanged when the contract is not met.
//
// Advancing out of decompose is not handled here: it requires a validated
// task list, see CompleteDecomposition.
func (m *Machine) Advance(ctx context.Context, role string) (graph.Phase, error) {
	// First artifact check, outside the lock. The same check runs again in
	// advanceLocked immediately before the phase is written.
	if g, err := m.store.Load(ctx); err == nil {
		if path := m.ArtifactPath(g.CurrentPhase); path != "" {
			if err := m.verifyArtifact(path); err != nil {
				return "", err
			}
		}
	}

	var after graph.Phase
	_, err := m.store.Update(ctx, func(g *graph.TaskGraph) error {
		next, err := m.advanceLocked(g, role)
		if err != nil {
			return err
		}
		after = next
		return nil
	})
	if err != nil {
		return "", err
	}
	return after, nil
}

// advanceLocked evaluates the transition rule for the graph's current phase
// while the store lock is held, so the artifact re-verification and the
// phase write cannot interleave with a concurrent mutation.
func (m *Machine) advanceLocked(g *graph.TaskGraph, role string) (graph.Phase, error) {
	log := m.log.WithPhase(g.CurrentPhase.String()).WithAgent(role)

	switch g.CurrentPhase {
	case graph.PhaseInit:
		// Nothing is produced during init; the run simply begins.
		g.CurrentPhase = graph.PhaseBrainstorm
		g.PhaseArtifacts[graph.PhaseInit.String()] = graph.PhaseCompletedSentinel
		log.Info("run started", "next", graph.PhaseBrainstorm)
		return graph.PhaseBrainstorm, nil

	case graph.PhaseBrainstorm:
		path := m.ArtifactPath(graph.PhaseBrainstorm)
		if err := m.verifyArtifact(path); err != nil {
			return "", err
		}
		g.CurrentPhase = graph.PhaseSpecify
		g.PhaseArtifacts[graph.PhaseBrainstorm.String()] = path
		log.Info("phase advanced", "next", graph.PhaseSpecify, "artifact", path)
		return graph.PhaseSpecify, nil

	case graph.PhaseSpecify:
		path := m.ArtifactPath(graph.PhaseSpecify)
		if err := m.verifyArtifact(path); err != nil {
			return "", err
		}
		count, err := countMarkers(path)
		if err != nil {
			return "", err
		}
		g.PhaseArtifacts[graph.PhaseSpecify.String()] = path

		if count > m.clarifyThreshold {
			g.CurrentPhase = graph.PhaseClarify
			log.Info("phase advanced", "next", graph.PhaseClarify,
				"markers", count, "threshold", m.clarifyThreshold)
			return graph.PhaseClarify, nil
		}
		g.CurrentPhase = graph.PhaseArchitecture
		g.MarkPhaseSkipped(graph.PhaseClarify)
		log.Info("phase advanced, clarification skipped",
			"next", graph.PhaseArchitecture, "markers", count)
		return graph.PhaseArchitecture, nil

	case graph.PhaseClarify:
		path := m.ArtifactPath(graph.PhaseClarify)
		if err := m.verifyArtifact(path); err != nil {
			return "", err
		}
		count, err := countMarkers(path)
		if err != nil {
			return "", err
		}
		if count > m.clarifyThreshold {
			// Self-loop: the clarify agent runs again. Not an error.
			log.Info("clarification incomplete, staying in clarify",
				"markers", count, "threshold", m.clarifyThreshold)
			return graph.PhaseClarify, nil
		}
		g.CurrentPhase = graph.PhaseArchitecture
		g.PhaseArtifacts[graph.PhaseClarify.String()] = graph.PhaseCompletedSentinel
		log.Info("phase advanced", "next", graph.PhaseArchitecture, "markers", count)
		return graph.PhaseArchitecture, nil

	case graph.PhaseArchitecture:
		path := m.ArtifactPath(graph.PhaseArchitecture)
		if err := m.verifyArtifact(path); err != nil {
			return "", err
		}
		g.CurrentPhase = graph.PhaseDecompose
		g.PhaseArtifacts[graph.PhaseArchitecture.String()] = path
		log.Info("phase advanced", "next", graph.PhaseDecompose, "artifact", path)
		return graph.PhaseDecompose, nil

	case graph.PhaseDecompose:
		return "", fmt.Errorf("decompose concludes through a validated task list, not a phase advance")

	case graph.PhaseExecute:
		return "", fmt.Errorf("phase pipeline is terminal; progress is task-level now")

	default:
		return "", fmt.Errorf("unknown phase %q", g.CurrentPhase)
	}
}

// CompleteDecomposition installs a validated task list and hands the run
// over to wave execution. tasks must already have passed decompose
// validation; this only performs the phase-level commit.
func (m *Machine) CompleteDecomposition(ctx context.Context, tasks []graph.Task, artifactPath string) error {
	if err := m.verifyArtifact(artifactPath); err != nil {
		return err
	}
	_, err := m.store.Update(ctx, func(g *graph.TaskGraph) error {
		if g.CurrentPhase != graph.PhaseDecompose {
			return fmt.Errorf("cannot install tasks in phase %q", g.CurrentPhase)
		}
		// Re-verify under the lock; the artifact may have moved since the
		// first check.
		if err := m.verifyArtifact(artifactPath); err != nil {
			return err
		}

		g.Tasks = tasks
		g.CurrentPhase = graph.PhaseExecute
		g.CurrentWave = 1
		g.PhaseArtifacts[graph.PhaseDecompose.String()] = artifactPath
		for _, w := range g.Waves() {
			g.Gate(w)
		}
		m.log.Info("decomposition installed",
			"tasks", len(tasks), "waves", len(g.Waves()))
		return nil
	})
	return err
}

// verifyArtifact checks that the artifact exists and lives under the specs
// directory. Both halves of the contract are enforced: a correct file in
// the wrong place is as invalid as a missing one.
func (m *Machine) verifyArtifact(path string) error {
	clean := filepath.Clean(path)
	if !m.containment.Match(clean) {
		return errors.Wrapf(errors.ErrArtifactMissing,
			"artifact %s is outside the specs directory %s", clean, m.specsDir)
	}
	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(errors.ErrArtifactMissing, "artifact %s", clean)
		}
		return fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return errors.Wrapf(errors.ErrArtifactMissing, "artifact %s is a directory", clean)
	}
	return nil
}

// countMarkers counts clarification markers in the artifact at path.
func countMarkers(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read artifact: %w", err)
	}
	return strings.Count(string(data), ClarificationMarker), nil
}
