package tui

import (
	"fmt"
	"strings"

	"github.com/riptide-sh/riptide/internal/graph"
	"github.com/riptide-sh/riptide/internal/util"
)

// statusGlyph maps a task's lifecycle state to a single colored glyph.
func statusGlyph(t *graph.Task) string {
	switch t.Status {
	case graph.StatusCompleted:
		return successStyle.Render("✓")
	case graph.StatusFailed:
		return errorStyle.Render("✗")
	case graph.StatusInProgress:
		return activeStyle.Render("⟳")
	case graph.StatusImplemented:
		return warnStyle.Render("◐")
	default:
		return mutedStyle.Render("○")
	}
}

func evidenceSummary(t *graph.Task) string {
	var parts []string

	switch {
	case t.TestsPassed == nil:
		parts = append(parts, mutedStyle.Render("tests:?"))
	case *t.TestsPassed:
		parts = append(parts, successStyle.Render("tests:pass"))
	default:
		parts = append(parts, errorStyle.Render("tests:fail"))
	}

	if t.NewTestsRequired {
		switch {
		case t.NewTestsWritten == nil:
			parts = append(parts, mutedStyle.Render("new:?"))
		case *t.NewTestsWritten:
			parts = append(parts, successStyle.Render("new:yes"))
		default:
			parts = append(parts, errorStyle.Render("new:no"))
		}
	}

	switch t.ReviewStatus {
	case graph.ReviewPassed:
		parts = append(parts, successStyle.Render("review:pass"))
	case graph.ReviewBlocked:
		parts = append(parts, errorStyle.Render(fmt.Sprintf("review:blocked(%d)", len(t.CriticalFindings))))
	case graph.ReviewEvidenceCaptureFailed:
		parts = append(parts, warnStyle.Render("review:no-evidence"))
	default:
		parts = append(parts, mutedStyle.Render("review:pending"))
	}

	return strings.Join(parts, " ")
}

// RenderStatus renders the full run status as a styled block. It is shared
// between the one-shot status command and the live monitor view.
func RenderStatus(g *graph.TaskGraph) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("riptide"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  phase=%s wave=%d", g.CurrentPhase, g.CurrentWave)))
	b.WriteString("\n")

	if len(g.SkippedPhases) > 0 {
		b.WriteString(mutedStyle.Render("skipped phases: " + strings.Join(g.SkippedPhases, ", ")))
		b.WriteString("\n")
	}

	if !g.CurrentPhase.IsTerminal() {
		b.WriteString("\n")
		b.WriteString(renderPipeline(g))
		return boxStyle.Render(b.String())
	}

	for _, wave := range g.Waves() {
		gate := g.Gate(wave)
		header := fmt.Sprintf("Wave %d", wave)
		switch {
		case gate.Blocked:
			header += errorStyle.Render("  [blocked]")
		case wave < g.CurrentWave:
			header += successStyle.Render("  [completed]")
		case wave == g.CurrentWave:
			header += activeStyle.Render("  [open]")
		default:
			header += mutedStyle.Render("  [waiting]")
		}
		b.WriteString(waveHeaderStyle.Render(header))
		b.WriteString("\n")

		for _, t := range g.TasksInWave(wave) {
			line := fmt.Sprintf("  %s %-6s %-12s %s",
				statusGlyph(t), t.ID, t.Agent, evidenceSummary(t))
			if t.RetryCount > 0 {
				line += warnStyle.Render(fmt.Sprintf("  retries:%d", t.RetryCount))
			}
			b.WriteString(line)
			b.WriteString("\n")
			if t.Description != "" {
				b.WriteString(mutedStyle.Render("      " + util.Truncate(t.Description, 72)))
				b.WriteString("\n")
			}
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// renderPipeline shows planning-phase progress before any tasks exist.
func renderPipeline(g *graph.TaskGraph) string {
	order := []graph.Phase{
		graph.PhaseBrainstorm, graph.PhaseSpecify, graph.PhaseClarify,
		graph.PhaseArchitecture, graph.PhaseDecompose,
	}

	var b strings.Builder
	for _, p := range order {
		var mark string
		switch {
		case g.PhaseSkipped(p):
			mark = mutedStyle.Render("⊘")
		case g.PhaseArtifacts[p.String()] != "":
			mark = successStyle.Render("✓")
		case g.CurrentPhase == p:
			mark = activeStyle.Render("⟳")
		default:
			mark = mutedStyle.Render("○")
		}
		b.WriteString(fmt.Sprintf("  %s %-13s", mark, p))
		if art := g.PhaseArtifacts[p.String()]; art != "" && art != graph.PhaseCompletedSentinel {
			b.WriteString(mutedStyle.Render(art))
		}
		b.WriteString("\n")
	}
	return b.String()
}
