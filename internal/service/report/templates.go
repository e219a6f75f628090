package report

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// countWords counts words in a string
func countWords(s string) int {
	return len(strings.Fields(s))
}

// sanitizeFilename removes or replaces characters unsuitable for filenames
func sanitizeFilename(s string) string {
	var result strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			result.WriteRune(r)
			dash = false
		case r == '-' || r == ' ' || r == '/' || r == ':' || r == '.':
			if !dash {
				result.WriteRune('-')
			}
			dash = true
		}
	}
	name := strings.Trim(strings.ToLower(result.String()), "-")
	if name == "" {
		return "untitled"
	}
	return name
}

// renderAnalystsTemplate renders the analyst panel of a run.
func renderAnalystsTemplate(topic string, analysts []core.Analyst) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Analysts: %s\n", topic)
	for i, a := range analysts {
		fmt.Fprintf(&sb, "\n## %d. %s\n\n", i+1, a.Name)
		fmt.Fprintf(&sb, "- **Role:** %s\n", a.Role)
		fmt.Fprintf(&sb, "- **Affiliation:** %s\n", a.Affiliation)
		fmt.Fprintf(&sb, "\n%s\n", a.Description)
	}
	return sb.String()
}

// renderErrorsTemplate lists the errors recorded for a run.
func renderErrorsTemplate(errs []core.RunError) string {
	if len(errs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n## Run errors\n\n")
	sb.WriteString("| Stage | Analyst | Kind | Message |\n")
	sb.WriteString("|-------|---------|------|---------|\n")
	for _, e := range errs {
		analyst := e.Analyst
		if analyst == "" {
			analyst = "-"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", e.Stage, analyst, e.Kind, strings.ReplaceAll(e.Message, "|", "\\|"))
	}
	return sb.String()
}
