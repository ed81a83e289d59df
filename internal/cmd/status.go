package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riptide-sh/riptide/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a snapshot of the run",
	Long: `Render the run's phase, wave, and per-task evidence as a styled
block. --json emits the raw graph instead, for scripting.`,
	RunE: runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the raw graph as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	g, err := rt.store.Load(cmd.Context())
	if err != nil {
		return err
	}

	if statusJSON {
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(tui.RenderStatus(g))
	return nil
}
