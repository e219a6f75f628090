package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the state of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var statusOutput string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "output format (text, json, yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cp, err := a.engine.GetState(ctx, args[0])
	if err != nil {
		return err
	}
	if ok, err := outputStructured(os.Stdout, statusOutput, cp); ok {
		return err
	}

	printStatus(cp)
	return nil
}

func printStatus(cp *core.Checkpoint) {
	fmt.Printf("Run:      %s\n", cp.RunID)
	fmt.Printf("Topic:    %s\n", cp.State.Topic)
	fmt.Printf("Kind:     %s\n", cp.Kind)
	fmt.Printf("Stage:    %s\n", cp.Stage)
	fmt.Printf("Status:   %s\n", cp.Status)
	fmt.Printf("Updated:  %s\n", cp.UpdatedAt.Local().Format(time.RFC1123))
	if cp.State.Generations > 1 {
		fmt.Printf("Team:     generation %d\n", cp.State.Generations)
	}
	fmt.Println()

	if len(cp.State.Analysts) > 0 {
		printAnalysts(os.Stdout, cp.State.Analysts)
	}

	if len(cp.State.Sections) > 0 {
		fmt.Printf("\nSections (%d):\n", len(cp.State.Sections))
		for _, s := range cp.State.Sections {
			fmt.Printf("  %d. %s\n", s.AnalystIndex+1, s.Analyst)
		}
	}

	if len(cp.State.Errors) > 0 {
		fmt.Println("\nErrors:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  STAGE\tANALYST\tKIND\tMESSAGE")
		for _, e := range cp.State.Errors {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", e.Stage, e.Analyst, e.Kind, e.Message)
		}
		_ = w.Flush()
	}
}
