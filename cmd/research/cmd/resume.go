package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Approve, regenerate or cancel a run waiting for feedback",
	Example: `  research resume 7c1e... --approve
  research resume 7c1e... --feedback "add an economist"
  research resume 7c1e... --cancel`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

var (
	resumeApprove  bool
	resumeFeedback string
	resumeCancel   bool
)

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().BoolVar(&resumeApprove, "approve", false, "approve the team and run the interviews")
	resumeCmd.Flags().StringVar(&resumeFeedback, "feedback", "", "regenerate the team with this feedback")
	resumeCmd.Flags().BoolVar(&resumeCancel, "cancel", false, "abandon the run")
	resumeCmd.MarkFlagsMutuallyExclusive("approve", "feedback", "cancel")
	resumeCmd.MarkFlagsOneRequired("approve", "feedback", "cancel")
}

func decisionFromFlags(approve bool, feedback string, cancel bool) core.Decision {
	switch {
	case cancel:
		return core.Cancel()
	case approve:
		return core.Approve()
	default:
		return core.DecisionFromFeedback(feedback)
	}
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	d := decisionFromFlags(resumeApprove, resumeFeedback, resumeCancel)
	a, err := newApp(ctx, appOptions{needModel: d.Kind != core.DecisionCancel})
	if err != nil {
		return err
	}
	defer a.Close()

	return resumeAndReport(ctx, a, args[0], d)
}

// resumeAndReport applies d and prints where the run ended up.
func resumeAndReport(ctx context.Context, a *app, runID string, d core.Decision) error {
	stop := watchProgress(a.bus, runID, os.Stderr)
	err := a.engine.Resume(ctx, runID, d)
	stop()
	if err != nil {
		return err
	}

	// Interrupted runs are recorded with a background context.
	cp, err := a.engine.GetState(context.WithoutCancel(ctx), runID)
	if err != nil {
		return err
	}

	switch {
	case cp.Status == core.RunStatusAwaitingFeedback:
		printAnalysts(os.Stdout, cp.State.Analysts)
		fmt.Printf("\nRun %s is waiting for feedback again.\n", runID)
	case cp.Status == core.RunStatusCompleted:
		path, err := a.reports.Export(cp)
		if err != nil {
			return err
		}
		if cp.Kind == core.KindPersona {
			printAnalysts(os.Stdout, cp.State.Analysts)
		}
		fmt.Printf("Report written to %s\n", path)
		fmt.Printf("  research report %s --render\n", runID)
	case cp.Status == core.RunStatusAbandoned:
		fmt.Printf("Run %s cancelled\n", runID)
	default:
		fmt.Printf("Run %s is %s at %s\n", runID, cp.Status, cp.Stage)
	}
	return nil
}
