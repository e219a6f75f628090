package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/service/research"
)

var startCmd = &cobra.Command{
	Use:   "start <topic>",
	Short: "Generate an analyst team and wait for feedback",
	Long: `Start a research run. The analysts are generated and the run stops at
the feedback gate; continue it with 'research resume'.`,
	Example: `  research start "Benefits of adopting LangGraph" --analysts 3
  research start "Open source LLM licensing" --persona-only`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStart,
}

var (
	startAnalysts    int
	startTurns       int
	startPersonaOnly bool
	startCheck       bool
)

func init() {
	rootCmd.AddCommand(startCmd)
	addRunFlags(startCmd)
}

func addRunFlags(c *cobra.Command) {
	c.Flags().IntVarP(&startAnalysts, "analysts", "n", 0, "number of analysts (default from config)")
	c.Flags().IntVar(&startTurns, "turns", 0, "expert answers per interview (default from config)")
	c.Flags().BoolVar(&startPersonaOnly, "persona-only", false, "stop after the team is approved")
	c.Flags().BoolVar(&startCheck, "check", false, "check the language model connection first")
}

func runOptions() []research.RunOption {
	var opts []research.RunOption
	if startTurns > 0 {
		opts = append(opts, research.WithMaxTurns(startTurns))
	}
	if startPersonaOnly {
		opts = append(opts, research.WithPersonaOnly())
	}
	return opts
}

func analystCount() int {
	if startAnalysts > 0 {
		return startAnalysts
	}
	return cfg.Research.MaxAnalysts
}

func runStart(cmd *cobra.Command, args []string) error {
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
	runID, err := a.engine.StartRun(ctx, strings.Join(args, " "), analystCount(), runOptions()...)
	stop()
	if err != nil {
		if runID != "" {
			fmt.Fprintf(os.Stderr, "Run %s failed\n", runID)
		}
		return err
	}

	cp, err := a.engine.GetState(ctx, runID)
	if err != nil {
		return err
	}
	printAnalysts(os.Stdout, cp.State.Analysts)
	fmt.Printf("\nRun %s is waiting for feedback.\n", runID)
	fmt.Printf("  research resume %s --approve\n", runID)
	fmt.Printf("  research resume %s --feedback \"add a policy analyst\"\n", runID)
	fmt.Printf("  research resume %s --cancel\n", runID)
	return nil
}
