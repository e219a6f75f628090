package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

var perspectivesSchema = core.OutputSchema{
	Name:        "perspectives",
	Description: "A panel of analysts, one per research theme.",
	Schema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "analysts": {
      "type": "array",
      "description": "Comprehensive list of analysts with their roles and affiliations.",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "description": "Name of the analyst."},
          "role": {"type": "string", "description": "Role of the analyst in the context of the topic."},
          "affiliation": {"type": "string", "description": "Primary affiliation of the analyst."},
          "description": {"type": "string", "description": "Description of the analyst focus, concerns, and motives."}
        },
        "required": ["name", "role", "affiliation", "description"]
      }
    }
  },
  "required": ["analysts"]
}`),
}

type perspectives struct {
	Analysts []core.Analyst `json:"analysts"`
}

// PersonaGenerator produces the analyst panel with one structured call.
type PersonaGenerator struct {
	model   core.LanguageModel
	prompts *PromptRenderer
	inv     invoker
}

// NewPersonaGenerator creates a generator.
func NewPersonaGenerator(model core.LanguageModel, prompts *PromptRenderer, inv invoker) *PersonaGenerator {
	return &PersonaGenerator{model: model, prompts: prompts, inv: inv}
}

// Generate returns exactly count analysts. Surplus analysts are dropped;
// too few, or an unparsable reply, is a generation error.
func (g *PersonaGenerator) Generate(ctx context.Context, topic, feedback string, count int) ([]core.Analyst, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, core.ErrValidation(core.CodeEmptyTopic, "topic is required")
	}
	if count < 1 {
		return nil, core.ErrValidation(core.CodeInvalidCount, fmt.Sprintf("analyst count must be at least 1, got %d", count))
	}

	system, err := g.prompts.RenderAnalysts(AnalystsParams{Topic: topic, Feedback: feedback, MaxAnalysts: count})
	if err != nil {
		return nil, core.ErrGenerationFailed("rendering analyst prompt").WithCause(err)
	}
	conversation := []core.Message{core.UserMessage(generateAnalystsRequest)}

	analysts, err := invoke(ctx, g.inv, "generate_analysts", func(ctx context.Context) ([]core.Analyst, error) {
		raw, err := g.model.GenerateStructured(ctx, system, conversation, perspectivesSchema)
		if err != nil {
			return nil, err
		}
		return parseAnalysts(raw, count)
	})
	if err != nil {
		return nil, asGenerationError("generating analysts", err)
	}
	return analysts, nil
}

func parseAnalysts(raw json.RawMessage, count int) ([]core.Analyst, error) {
	var out perspectives
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, core.ErrGenerationFailed("analyst list is not valid JSON").WithCause(err)
	}
	valid := make([]core.Analyst, 0, len(out.Analysts))
	for _, a := range out.Analysts {
		a.Name = strings.TrimSpace(a.Name)
		if a.Validate() != nil {
			continue
		}
		valid = append(valid, a)
	}
	if len(valid) < count {
		return nil, core.ErrGenerationFailed(fmt.Sprintf("expected %d analysts, got %d usable", count, len(valid)))
	}
	return valid[:count], nil
}
