package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/riptide-sh/riptide/internal/graph"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an orchestration run",
	Long: `Create the run directory, the specs directory, and a fresh state
file in the init phase with wave 1 open. Fails if the run already exists.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := os.MkdirAll(rt.cfg.Paths.ResolveSpecsDir(), 0755); err != nil {
		return fmt.Errorf("create specs directory: %w", err)
	}

	if err := rt.store.Create(cmd.Context(), graph.New()); err != nil {
		return err
	}

	fmt.Printf("Initialized run in %s\n", rt.cfg.Paths.RunDir)
	fmt.Printf("State file: %s\n", rt.store.Path())
	fmt.Printf("Specs directory: %s\n", rt.cfg.Paths.ResolveSpecsDir())
	return nil
}
