package research

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// SynthesisResult holds the three reduced report parts.
type SynthesisResult struct {
	Introduction string
	Body         string
	Conclusion   string
}

// Synthesizer reduces the completed sections into the report parts.
type Synthesizer struct {
	model   core.LanguageModel
	prompts *PromptRenderer
	inv     invoker
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(model core.LanguageModel, prompts *PromptRenderer, inv invoker) *Synthesizer {
	return &Synthesizer{model: model, prompts: prompts, inv: inv}
}

// Synthesize runs the body, introduction and conclusion reducers
// concurrently over the complete set of sections. Zero sections, or any
// failed reducer, is a synthesis error.
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, sections []string) (SynthesisResult, error) {
	if len(sections) == 0 {
		return SynthesisResult{}, core.ErrSynthesisFailed("no interview produced a section")
	}
	joined := strings.Join(sections, "\n\n")

	reportPrompt, err := s.prompts.RenderReport(topic, joined)
	if err != nil {
		return SynthesisResult{}, core.ErrSynthesisFailed("rendering report prompt").WithCause(err)
	}
	framePrompt, err := s.prompts.RenderIntroConclusion(topic, joined)
	if err != nil {
		return SynthesisResult{}, core.ErrSynthesisFailed("rendering introduction prompt").WithCause(err)
	}

	var result SynthesisResult
	g, gctx := errgroup.WithContext(ctx)
	tasks := []struct {
		name    string
		system  string
		request string
		out     *string
	}{
		{"write_report", reportPrompt, writeReportRequest, &result.Body},
		{"write_introduction", framePrompt, writeIntroRequest, &result.Introduction},
		{"write_conclusion", framePrompt, writeConclusionRequest, &result.Conclusion},
	}
	for _, task := range tasks {
		g.Go(func() error {
			conversation := []core.Message{core.UserMessage(task.request)}
			text, err := invoke(gctx, s.inv, task.name, func(ctx context.Context) (string, error) {
				return s.model.GenerateText(ctx, task.system, conversation)
			})
			if err != nil {
				return core.ErrSynthesisFailed(fmt.Sprintf("%s failed", task.name)).WithCause(err)
			}
			*task.out = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SynthesisResult{}, err
	}
	result.Body = ConsolidateSources(result.Body)
	return result, nil
}
