package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/clip"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Print, render, export or copy the final report",
	Example: `  research report 7c1e... --render
  research report 7c1e... --out report.md
  research report 7c1e... --copy`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var (
	reportRender bool
	reportStyle  string
	reportCopy   bool
	reportOut    string
	reportExport bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportRender, "render", false, "render markdown for the terminal")
	reportCmd.Flags().StringVar(&reportStyle, "style", "", "glamour style (dark, light, notty)")
	reportCmd.Flags().BoolVar(&reportCopy, "copy", false, "copy the report to the clipboard")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to a file")
	reportCmd.Flags().BoolVar(&reportExport, "export", false, "write the report and its sections under report.dir")
}

func runReport(cmd *cobra.Command, args []string) error {
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
	doc, err := a.reports.Document(cp)
	if err != nil {
		return err
	}

	wrote := false
	if reportOut != "" {
		if err := a.reports.WriteTo(cp, reportOut); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", reportOut)
		wrote = true
	}
	if reportExport {
		path, err := a.reports.Export(cp)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report exported to %s\n", path)
		wrote = true
	}
	if reportCopy {
		res, err := clip.WriteAll(doc)
		if err != nil {
			return fmt.Errorf("copying report: %w", err)
		}
		if res.Method == clip.MethodFile {
			fmt.Fprintf(os.Stderr, "Clipboard unavailable, report saved to %s\n", res.FilePath)
		} else {
			fmt.Fprintf(os.Stderr, "Report copied to clipboard (%s)\n", res.Method)
		}
		wrote = true
	}

	if reportRender {
		out, err := report.Render(doc, report.RenderOptions{Width: terminalWidth(), Style: reportStyle})
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
	if !wrote {
		fmt.Print(doc)
	}
	return nil
}
