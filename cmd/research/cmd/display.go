package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/events"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	nameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	roleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// renderAnalysts formats the analyst panel. Plain text is used when styled
// output is off.
func renderAnalysts(analysts []core.Analyst, styled bool) string {
	if !styled {
		var b strings.Builder
		for i, a := range analysts {
			fmt.Fprintf(&b, "%d. %s - %s, %s\n   %s\n", i+1, a.Name, a.Role, a.Affiliation, a.Description)
		}
		return b.String()
	}

	cards := make([]string, len(analysts))
	for i, a := range analysts {
		header := nameStyle.Render(fmt.Sprintf("%d. %s", i+1, a.Name))
		role := roleStyle.Render(a.Role + ", " + a.Affiliation)
		cards[i] = header + "\n" + role + "\n" + lipgloss.NewStyle().Width(72).Render(a.Description)
	}
	return panelStyle.Render(titleStyle.Render("Research team") + "\n\n" + strings.Join(cards, "\n\n"))
}

func printAnalysts(w io.Writer, analysts []core.Analyst) {
	fmt.Fprintln(w, renderAnalysts(analysts, !noColor && stdoutIsTerminal()))
}

// progressMessage turns an engine event into a one-line status update.
// Events without a message return "".
func progressMessage(e events.Event) string {
	switch ev := e.(type) {
	case events.RunStartedEvent:
		return fmt.Sprintf("Assembling a research team of %d for %q...", ev.MaxAnalysts, ev.Topic)
	case events.AnalystsGeneratedEvent:
		if ev.Feedback != "" {
			return fmt.Sprintf("Team regenerated with %d analysts", len(ev.Names))
		}
		return fmt.Sprintf("Team generated with %d analysts", len(ev.Names))
	case events.RunResumedEvent:
		switch core.DecisionKind(ev.Decision) {
		case core.DecisionApprove:
			return "Conducting comprehensive multi-agent research..."
		case core.DecisionRegenerate:
			return "Regenerating the team with your feedback..."
		}
	case events.InterviewEvent:
		switch ev.EventType() {
		case events.TypeInterviewStarted:
			return fmt.Sprintf("Conducting expert interviews... (%s)", ev.Analyst)
		case events.TypeInterviewCompleted:
			return fmt.Sprintf("Interview with %s complete", ev.Analyst)
		case events.TypeInterviewAborted:
			return fmt.Sprintf("Interview with %s aborted: %s", ev.Analyst, ev.Error)
		}
	case events.SynthesisStartedEvent:
		return fmt.Sprintf("Synthesizing findings from %d interviews...", ev.Sections)
	case events.ReportCompletedEvent:
		return "Report finalized"
	case events.RunFailedEvent:
		return fmt.Sprintf("Research failed during %s: %s", ev.Stage, ev.Error)
	case events.RunAbandonedEvent:
		return "Research cancelled"
	}
	return ""
}

// watchProgress prints progress messages for runID until the bus closes or
// stop is called.
func watchProgress(bus *events.EventBus, runID string, w io.Writer) (stop func()) {
	if quiet {
		return func() {}
	}
	ch := bus.SubscribeRun(runID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range ch {
			if msg := progressMessage(e); msg != "" {
				fmt.Fprintln(w, msg)
			}
		}
	}()
	return func() {
		bus.Unsubscribe(ch)
		<-done
	}
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	if w > 120 {
		return 120
	}
	return w
}
