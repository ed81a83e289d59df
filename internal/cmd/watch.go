package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
	"github.com/riptide-sh/riptide/internal/phase"
	"github.com/riptide-sh/riptide/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Advance planning phases as artifacts appear",
	Long: `Watch the specs directory and attempt a phase advance whenever an
artifact is created or written. The advance re-verifies the artifact
contract under the lock, so a spurious filesystem event is harmless.

Runs until interrupted or the planning pipeline reaches execute.`,
	RunE: runWatch,
}

var watchRole string

func init() {
	watchCmd.Flags().StringVar(&watchRole, "role", "planner", "role recorded on phase transitions")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	g, err := rt.store.Load(cmd.Context())
	if err != nil {
		return err
	}
	if g.CurrentPhase.IsTerminal() {
		fmt.Println("Planning pipeline already complete; nothing to watch")
		return nil
	}

	w, err := watch.New(rt.cfg.Paths.ResolveSpecsDir(), rt.log)
	if err != nil {
		return err
	}
	defer w.Close()

	m := phase.NewMachine(rt.store, rt.log,
		rt.cfg.Paths.ResolveSpecsDir(), rt.cfg.Phases.ClarifyThreshold)

	ctx := cmd.Context()
	go func() { _ = w.Run(ctx) }()

	fmt.Printf("Watching %s for phase artifacts\n", rt.cfg.Paths.ResolveSpecsDir())
	for ev := range w.Events() {
		cur, err := rt.store.Load(ctx)
		if err != nil {
			return err
		}
		if cur.CurrentPhase == graph.PhaseDecompose || cur.CurrentPhase.IsTerminal() {
			// Decompose concludes through "tasks load", not an artifact event.
			fmt.Printf("Phase is %s; watching is done\n", cur.CurrentPhase)
			return nil
		}

		next, err := m.Advance(ctx, watchRole)
		switch {
		case err == nil:
			fmt.Printf("%s appeared; phase is now %s\n", ev.Name, next)
			if next == graph.PhaseDecompose {
				return nil
			}
		case errors.Is(err, errors.ErrArtifactMissing):
			// Some other file changed; the required artifact is still absent.
		default:
			return err
		}
	}
	return ctx.Err()
}
