package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/riptide-sh/riptide/internal/crash"
	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/evidence"
	"github.com/riptide-sh/riptide/internal/phase"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Agent completion hooks",
}

var agentCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Record a worker agent's completion",
	Long: `Parse a worker's transcript into structured evidence and record it
on the task. The transcript is read from --transcript or stdin.

An implementation-class completion with no parseable marker of any kind is
treated as a crash: every in-flight task in the dispatch batch is failed
and its retry count incremented.`,
	RunE: runAgentComplete,
}

var agentAdvanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Advance the planning phase after a phase agent completes",
	Long: `Attempt the phase transition for the run's current phase. The
transition only commits when the phase's required artifact exists under the
specs directory; otherwise the phase is left unchanged and the command
exits with code 2.`,
	RunE: runAgentAdvance,
}

var (
	agentRole      string
	agentTask      string
	transcriptPath string
)

func init() {
	agentCompleteCmd.Flags().StringVar(&agentRole, "role", "", "agent role tag")
	agentCompleteCmd.Flags().StringVar(&agentTask, "task", "", "task id the agent was dispatched for")
	agentCompleteCmd.Flags().StringVar(&transcriptPath, "transcript", "", "transcript file (defaults to stdin)")
	_ = agentCompleteCmd.MarkFlagRequired("role")
	_ = agentCompleteCmd.MarkFlagRequired("task")

	agentAdvanceCmd.Flags().StringVar(&agentRole, "role", "", "agent role tag")
	_ = agentAdvanceCmd.MarkFlagRequired("role")

	agentCmd.AddCommand(agentCompleteCmd)
	agentCmd.AddCommand(agentAdvanceCmd)
	rootCmd.AddCommand(agentCmd)
}

func readTranscript() (string, error) {
	if transcriptPath != "" {
		data, err := os.ReadFile(transcriptPath)
		if err != nil {
			return "", fmt.Errorf("read transcript: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read transcript from stdin: %w", err)
	}
	return string(data), nil
}

func runAgentComplete(cmd *cobra.Command, args []string) error {
	output, err := readTranscript()
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	rec := evidence.NewRecorder(rt.store, rt.log)
	if _, err := rec.RecordCompletion(cmd.Context(), agentTask, agentRole, output); err != nil {
		if !errors.Is(err, errors.ErrCrashDetected) {
			return err
		}

		mgr := crash.NewManager(rt.store, rt.log, rt.cfg.Waves.MaxRetries)
		res, ferr := mgr.FailBatch(cmd.Context(),
			fmt.Sprintf("worker crash: %v", err))
		if ferr != nil {
			return errors.Join(err, ferr)
		}
		fmt.Printf("Crash detected; failed batch: %v\n", res.Failed)
		if len(res.Exhausted) > 0 {
			fmt.Printf("Retry budget exhausted, human intervention required: %v\n", res.Exhausted)
		}
		return nil
	}

	fmt.Printf("Evidence recorded for %s\n", agentTask)
	return nil
}

func runAgentAdvance(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	m := phase.NewMachine(rt.store, rt.log,
		rt.cfg.Paths.ResolveSpecsDir(), rt.cfg.Phases.ClarifyThreshold)

	next, err := m.Advance(cmd.Context(), agentRole)
	if err != nil {
		if errors.Is(err, errors.ErrArtifactMissing) {
			// Artifact not there yet: informative, nothing changed.
			fmt.Fprintf(os.Stderr, "not ready: %v\n", err)
			os.Exit(ExitNotReady)
		}
		return err
	}

	fmt.Printf("Phase is now %s\n", next)
	return nil
}
