// Package tui renders run status. RenderStatus produces a one-shot styled
// snapshot; Model is a read-only live monitor that polls the state file and
// re-renders on every committed mutation. The monitor never writes state.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
	"github.com/riptide-sh/riptide/internal/store"
)

// pollInterval is how often the monitor re-reads the state file. Reads are
// lock-free so frequent polling does not contend with writers.
const pollInterval = 500 * time.Millisecond

type graphMsg struct {
	graph *graph.TaskGraph
	err   error
}

type tickMsg time.Time

// Model is the live monitor. It holds the last committed graph snapshot and
// an error from the most recent load attempt, if any.
type Model struct {
	store   store.Store
	graph   *graph.TaskGraph
	loadErr error
	spin    spinner.Model
	width   int
	height  int
}

// NewModel creates a monitor over the given store.
func NewModel(st store.Store) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = activeStyle
	return Model{store: st, spin: sp}
}

// Init starts the spinner and the first load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadCmd(), tickCmd())
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		g, err := m.store.Load(context.Background())
		return graphMsg{graph: g, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles input, poll ticks, and load results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.loadCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.loadCmd(), tickCmd())

	case graphMsg:
		if msg.err != nil {
			m.loadErr = msg.err
		} else {
			m.graph = msg.graph
			m.loadErr = nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current snapshot.
func (m Model) View() string {
	if m.loadErr != nil {
		if errors.Is(m.loadErr, errors.ErrStateNotFound) {
			return boxStyle.Render(
				m.spin.View() + " waiting for run to be initialized\n" +
					mutedStyle.Render("  press q to quit"))
		}
		return boxStyle.Render(errorStyle.Render("error: " + m.loadErr.Error()))
	}
	if m.graph == nil {
		return m.spin.View() + " loading"
	}

	out := RenderStatus(m.graph)
	out += "\n" + mutedStyle.Render(m.spin.View()+" watching  ·  r refresh  ·  q quit")
	return out
}
