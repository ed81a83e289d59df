package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riptide-sh/riptide/internal/wavegate"
)

var waveCmd = &cobra.Command{
	Use:   "wave",
	Short: "Wave gating operations",
}

var waveCompleteCmd = &cobra.Command{
	Use:   "complete [wave]",
	Short: "Attempt to promote a wave to completed",
	Long: `Verify that every task in the wave has passing tests, a discharged
new-test obligation, a concluded review, and zero critical findings. If all
checks pass the wave is promoted atomically and the next wave opens.

With no argument, the graph's current wave is attempted. A wave that is not
ready exits with code 2 and lists the offending task ids; nothing changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWaveComplete,
}

var waveReportTestsCmd = &cobra.Command{
	Use:   "report-tests <wave>",
	Short: "Record a wave-level test run outcome",
	Args:  cobra.ExactArgs(1),
	RunE:  runWaveReportTests,
}

var reportPassed bool

func init() {
	waveReportTestsCmd.Flags().BoolVar(&reportPassed, "passed", false, "whether the wave's test run passed")
	_ = waveReportTestsCmd.MarkFlagRequired("passed")

	waveCmd.AddCommand(waveCompleteCmd)
	waveCmd.AddCommand(waveReportTestsCmd)
	rootCmd.AddCommand(waveCmd)
}

func runWaveComplete(cmd *cobra.Command, args []string) error {
	wave := 0
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("wave must be a number, got %q", args[0])
		}
		wave = n
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctrl := wavegate.NewController(rt.store, rt.log)
	res, err := ctrl.TryComplete(cmd.Context(), wave)
	if err != nil {
		return err
	}

	switch {
	case res.AlreadyComplete:
		fmt.Printf("Wave %d was already completed\n", res.Wave)
	case res.Terminal:
		fmt.Printf("Wave %d completed (%s); all waves executed\n",
			res.Wave, strings.Join(res.Promoted, ", "))
	default:
		fmt.Printf("Wave %d completed (%s); wave %d is now open\n",
			res.Wave, strings.Join(res.Promoted, ", "), res.NextWave)
	}
	return nil
}

func runWaveReportTests(cmd *cobra.Command, args []string) error {
	wave, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("wave must be a number, got %q", args[0])
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctrl := wavegate.NewController(rt.store, rt.log)
	if err := ctrl.ReportWaveTests(cmd.Context(), wave, reportPassed); err != nil {
		return err
	}
	fmt.Printf("Recorded test outcome for wave %d: passed=%v\n", wave, reportPassed)
	return nil
}
