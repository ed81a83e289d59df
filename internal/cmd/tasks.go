package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riptide-sh/riptide/internal/decompose"
	"github.com/riptide-sh/riptide/internal/phase"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Decomposition task list operations",
}

var tasksLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Validate and install the decomposition task list",
	Long: `Validate the decomposition artifact (JSON or YAML) against the
task contract: ids matching T<number>, waves starting at 1, dependencies in
strictly earlier waves, agents from the configured role set. A valid list
is installed into the graph and the run moves to the execute phase.

--fix renumbers non-contiguous waves to 1..N before validation, reporting
every change; no other defect is auto-corrected.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasksLoad,
}

var tasksValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a task list without installing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksValidate,
}

var fixWaves bool

func init() {
	tasksLoadCmd.Flags().BoolVar(&fixWaves, "fix", false, "renumber non-contiguous waves before validating")

	tasksCmd.AddCommand(tasksLoadCmd)
	tasksCmd.AddCommand(tasksValidateCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksLoad(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	list, err := decompose.Load(args[0])
	if err != nil {
		return err
	}

	if fixWaves {
		for _, fix := range decompose.NormalizeWaves(list) {
			fmt.Printf("fixed: %s\n", fix)
		}
	}

	if err := decompose.Validate(list, rt.cfg.Agents.Roles); err != nil {
		return err
	}

	m := phase.NewMachine(rt.store, rt.log,
		rt.cfg.Paths.ResolveSpecsDir(), rt.cfg.Phases.ClarifyThreshold)
	if err := m.CompleteDecomposition(cmd.Context(), decompose.ToGraphTasks(list), args[0]); err != nil {
		return err
	}

	fmt.Printf("Installed %d tasks; run is now executing wave 1\n", len(list.Tasks))
	return nil
}

func runTasksValidate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	list, err := decompose.Load(args[0])
	if err != nil {
		return err
	}
	if err := decompose.Validate(list, rt.cfg.Agents.Roles); err != nil {
		return err
	}
	fmt.Printf("Task list is valid: %d tasks\n", len(list.Tasks))
	return nil
}
