package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/logging"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/testutil"
)

func testPolicy() service.CallPolicy {
	return service.CallPolicy{
		Timeout: 2 * time.Second,
		Retry: service.NewRetryPolicy(
			service.WithMaxAttempts(2),
			service.WithBaseDelay(time.Millisecond),
			service.WithMaxDelay(5*time.Millisecond),
		),
	}
}

func testInvoker() invoker {
	return invoker{policy: testPolicy(), logger: logging.NewNop()}
}

func testPrompts(t *testing.T) *PromptRenderer {
	t.Helper()
	r, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("loading prompts: %v", err)
	}
	return r
}

// currentAnalyst returns the name of the analyst asking questions in a
// conversation, or "".
func currentAnalyst(conversation []core.Message) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		m := conversation[i]
		if m.Role == core.RoleAssistant && m.Name != core.ExpertName {
			return m.Name
		}
	}
	return ""
}

// focusOf extracts the analyst name from a rendered persona prompt.
func focusOf(system string) string {
	for _, line := range strings.Split(system, "\n") {
		if name, ok := strings.CutPrefix(line, "Name: "); ok {
			return name
		}
	}
	return ""
}

// markerOf returns the last word of the analyst description in a section
// prompt, e.g. "A" for "Focuses on aspect A".
func markerOf(system string) string {
	for _, line := range strings.Split(system, "\n") {
		if strings.Contains(line, "Focuses on") {
			fields := strings.Fields(line)
			return fields[len(fields)-1]
		}
	}
	return "?"
}

// scriptedModel answers every prompt of the pipeline with deterministic,
// analyst-specific content. Each section cites a shared source and one of
// its own.
func scriptedModel(panels ...[]core.Analyst) *testutil.MockModel {
	generation := 0
	return testutil.NewMockModel().
		WithStructuredFunc(func(_ context.Context, _ string, conversation []core.Message, schema core.OutputSchema) (json.RawMessage, error) {
			switch schema.Name {
			case "perspectives":
				panel := panels[len(panels)-1]
				if generation < len(panels) {
					panel = panels[generation]
				}
				generation++
				return testutil.AnalystsJSON(panel...), nil
			case "search_query":
				return json.Marshal(map[string]string{"search_query": currentAnalyst(conversation) + " query"})
			}
			return nil, fmt.Errorf("unexpected schema %q", schema.Name)
		}).
		WithTextFunc(func(_ context.Context, system string, conversation []core.Message) (string, error) {
			switch {
			case strings.Contains(system, "analyst interviewing an expert"):
				return "What matters most for " + focusOf(system) + "?", nil
			case strings.Contains(system, "being interviewed"):
				return "It depends on the evidence [1].", nil
			case strings.Contains(system, "expert technical writer"):
				marker := markerOf(system)
				return fmt.Sprintf("## Findings %s\n### Summary\nInsight %s [1] and shared [2].\n### Sources\n[1] https://example.com/%s\n[2] https://shared.example.org/report", marker, marker, marker), nil
			case strings.Contains(system, "creating a report"):
				return bodyFrom(system), nil
			case strings.Contains(system, "finishing a report"):
				if conversation[0].Content == writeIntroRequest {
					return IntroductionHeader + "\nIntroduction text", nil
				}
				return ConclusionHeader + "\nConclusion text", nil
			}
			return "", fmt.Errorf("unexpected prompt: %.60s", system)
		})
}

// bodyFrom writes a body that repeats every sentence and source entry of
// the memos in the prompt, the way a report writer merges them.
func bodyFrom(system string) string {
	var insights, sources []string
	for _, line := range strings.Split(system, "\n") {
		switch {
		case strings.HasPrefix(line, "Insight "):
			insights = append(insights, line)
		case strings.HasPrefix(line, "[") && strings.Contains(line, "example."):
			sources = append(sources, line)
		}
	}
	// Renumber naively; consolidation dedups the repeated shared source.
	var sb strings.Builder
	sb.WriteString(InsightsMarker + "\n\n")
	for i, line := range insights {
		sb.WriteString(strings.NewReplacer("[1]", fmt.Sprintf("[%d]", 2*i+1), "[2]", fmt.Sprintf("[%d]", 2*i+2)).Replace(line))
		sb.WriteString("\n")
	}
	sb.WriteString("\n" + SourcesHeader + "\n")
	for i, line := range sources {
		_, src, _ := strings.Cut(line, "] ")
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, src))
	}
	return strings.TrimRight(sb.String(), "\n")
}
