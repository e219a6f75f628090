package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored runs, newest first",
	RunE:    runList,
}

var listOutput string

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "text", "output format (text, json, yaml)")
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.engine.List(ctx)
	if err != nil {
		return err
	}
	if ok, err := outputStructured(os.Stdout, listOutput, runs); ok {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tSTAGE\tANALYSTS\tSECTIONS\tUPDATED\tTOPIC")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.RunID, r.Status, r.Stage, r.Analysts, r.Sections,
			r.UpdatedAt.Local().Format("2006-01-02 15:04"), truncate(r.Topic, 48))
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
