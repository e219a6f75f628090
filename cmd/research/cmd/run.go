package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service/report"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Run a full research session interactively",
	Long: `Generate a team, review it at the prompt and, once approved, run the
interviews and print the report. Press enter to approve, type feedback to
regenerate the team, or type "cancel" to stop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInteractive,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

// readDecision prompts for feedback at the gate. EOF cancels the run.
func readDecision(in *bufio.Reader, out io.Writer) (core.Decision, error) {
	fmt.Fprint(out, "\nFeedback (enter to approve, \"cancel\" to stop): ")
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return core.Decision{}, err
	}
	if err == io.EOF && line == "" {
		fmt.Fprintln(out)
		return core.Cancel(), nil
	}
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "cancel", "quit", "exit":
		return core.Cancel(), nil
	}
	return core.DecisionFromFeedback(line), nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, appOptions{needModel: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if startCheck {
		if err := a.checkConnectivity(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Connected successfully!")
	}

	stop := watchProgress(a.bus, "", os.Stderr)
	defer stop()

	runID, err := a.engine.StartRun(ctx, strings.Join(args, " "), analystCount(), runOptions()...)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	for {
		cp, err := a.engine.GetState(ctx, runID)
		if err != nil {
			return err
		}
		if cp.Status != core.RunStatusAwaitingFeedback {
			return printOutcome(a, cp)
		}

		printAnalysts(os.Stdout, cp.State.Analysts)
		d, err := readDecision(in, os.Stdout)
		if err != nil {
			return err
		}
		if err := a.engine.Resume(ctx, runID, d); err != nil {
			return err
		}
	}
}

func printOutcome(a *app, cp *core.Checkpoint) error {
	switch cp.Status {
	case core.RunStatusCompleted:
		doc, err := a.reports.Document(cp)
		if err != nil {
			return err
		}
		if _, err := a.reports.Export(cp); err != nil {
			a.logger.Warn("exporting report", "run_id", cp.RunID, "error", err)
		}
		return printDocument(doc, stdoutIsTerminal() && !noColor)
	case core.RunStatusAbandoned:
		fmt.Printf("Run %s cancelled\n", cp.RunID)
		return nil
	default:
		return fmt.Errorf("run %s ended %s at %s", cp.RunID, cp.Status, cp.Stage)
	}
}

func printDocument(doc string, render bool) error {
	if render {
		out, err := report.Render(doc, report.RenderOptions{Width: terminalWidth()})
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
	fmt.Print(doc)
	return nil
}
