package report

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// RenderOptions controls terminal rendering.
type RenderOptions struct {
	Width int    // word wrap column, default 80
	Style string // glamour standard style; empty picks one from the terminal
}

// Render formats a markdown document for the terminal. Frontmatter is
// dropped.
func Render(doc string, opts RenderOptions) (string, error) {
	if _, body, err := ParseFrontmatter(doc); err == nil {
		doc = body
	}
	width := opts.Width
	if width <= 0 {
		width = 80
	}

	style := glamour.WithAutoStyle()
	if opts.Style != "" {
		style = glamour.WithStandardStyle(opts.Style)
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := renderer.Render(doc)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
