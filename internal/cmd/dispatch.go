package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riptide-sh/riptide/internal/crash"
	"github.com/riptide-sh/riptide/internal/dispatch"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Task dispatch eligibility",
}

var dispatchCheckCmd = &cobra.Command{
	Use:   "check <task-id>",
	Short: "Check whether a task may be dispatched now",
	Long: `Verify the task's wave has been reached and all of its dependencies
are completed. A rejected task exits with code 2 and explains the blocker;
an id not present in the graph is allowed through unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runDispatchCheck,
}

var dispatchMarkCmd = &cobra.Command{
	Use:   "mark <task-id>",
	Short: "Record that a task has been handed to a worker",
	Args:  cobra.ExactArgs(1),
	RunE:  runDispatchMark,
}

var dispatchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every task eligible for dispatch in the current wave",
	RunE:  runDispatchList,
}

var startMarker string

func init() {
	dispatchMarkCmd.Flags().StringVar(&startMarker, "start-marker", "", "checkpoint recorded at dispatch (e.g. VCS revision)")

	dispatchCmd.AddCommand(dispatchCheckCmd)
	dispatchCmd.AddCommand(dispatchMarkCmd)
	dispatchCmd.AddCommand(dispatchListCmd)
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatchCheck(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	g, err := rt.store.Load(cmd.Context())
	if err != nil {
		return err
	}

	if err := dispatch.CanDispatch(g, args[0]); err != nil {
		return err
	}
	fmt.Printf("%s may be dispatched\n", args[0])
	return nil
}

func runDispatchMark(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	g, err := rt.store.Load(cmd.Context())
	if err != nil {
		return err
	}
	if err := dispatch.CanDispatch(g, args[0]); err != nil {
		return err
	}

	mgr := crash.NewManager(rt.store, rt.log, rt.cfg.Waves.MaxRetries)
	if err := mgr.MarkDispatched(cmd.Context(), args[0], startMarker); err != nil {
		return err
	}
	fmt.Printf("%s is now in progress\n", args[0])
	return nil
}

func runDispatchList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	g, err := rt.store.Load(cmd.Context())
	if err != nil {
		return err
	}

	ids := dispatch.Dispatchable(g, rt.cfg.Waves.MaxRetries)
	if len(ids) == 0 {
		fmt.Printf("No dispatchable tasks in wave %d\n", g.CurrentWave)
		return nil
	}
	fmt.Printf("Dispatchable in wave %d: %s\n", g.CurrentWave, strings.Join(ids, ", "))
	return nil
}
