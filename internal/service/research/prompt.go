package research

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// Fixed headers of the synthesized report.
const (
	InsightsMarker     = "## Insights"
	SourcesHeader      = "## Sources"
	IntroductionHeader = "## Introduction"
	ConclusionHeader   = "## Conclusion"
)

// Human turns sent with the instruction prompts.
const (
	generateAnalystsRequest = "Generate the set of analysts."
	writeReportRequest      = "Write a report based upon these memos."
	writeIntroRequest       = "Write the report introduction"
	writeConclusionRequest  = "Write the report conclusion"
	writeSectionRequest     = "Use this source to write your section: "
)

// OpeningMessage seeds every interview.
func OpeningMessage(topic string) core.Message {
	return core.UserMessage(fmt.Sprintf("So you said you were writing an article on %s?", topic))
}

// PromptRenderer renders the embedded instruction templates.
type PromptRenderer struct {
	templates map[string]*template.Template
}

// NewPromptRenderer parses every embedded template.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{templates: make(map[string]*template.Template)}
	err := fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}
		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, "prompts/"), ".md.tmpl")
		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.templates[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	return r, nil
}

// MustPromptRenderer is NewPromptRenderer for package initialization.
func MustPromptRenderer() *PromptRenderer {
	r, err := NewPromptRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *PromptRenderer) render(name string, data interface{}) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// AnalystsParams feeds the persona generation prompt.
type AnalystsParams struct {
	Topic       string
	Feedback    string
	MaxAnalysts int
}

// RenderAnalysts renders the persona generation prompt.
func (r *PromptRenderer) RenderAnalysts(p AnalystsParams) (string, error) {
	return r.render("analysts", p)
}

// RenderQuestion renders the interviewer prompt for a persona.
func (r *PromptRenderer) RenderQuestion(goals string) (string, error) {
	return r.render("question", struct {
		Goals         string
		ClosingPhrase string
	}{goals, core.ClosingPhrase})
}

// RenderSearchQuery renders the query formulation prompt.
func (r *PromptRenderer) RenderSearchQuery() (string, error) {
	return r.render("search_query", nil)
}

// RenderAnswer renders the expert prompt.
func (r *PromptRenderer) RenderAnswer(goals, context string) (string, error) {
	return r.render("answer", struct {
		Goals   string
		Context string
	}{goals, context})
}

// RenderSection renders the section writer prompt.
func (r *PromptRenderer) RenderSection(focus string) (string, error) {
	return r.render("section", struct{ Focus string }{focus})
}

// RenderReport renders the body writer prompt.
func (r *PromptRenderer) RenderReport(topic, sections string) (string, error) {
	return r.render("report", struct {
		Topic         string
		Sections      string
		TitleMarker   string
		SourcesHeader string
	}{topic, sections, InsightsMarker, SourcesHeader})
}

// RenderIntroConclusion renders the shared introduction and conclusion prompt.
func (r *PromptRenderer) RenderIntroConclusion(topic, sections string) (string, error) {
	return r.render("intro_conclusion", struct {
		Topic              string
		Sections           string
		IntroductionHeader string
		ConclusionHeader   string
	}{topic, sections, IntroductionHeader, ConclusionHeader})
}
