// Package report exports research runs as markdown documents and renders
// them for the terminal.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/fsutil"
)

// Config configures the report writer
type Config struct {
	Dir    string // default: ".research/reports"
	UseUTC bool   // default: true
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Dir:    ".research/reports",
		UseUTC: true,
	}
}

// Writer exports runs under Config.Dir, one directory per run.
type Writer struct {
	mu     sync.Mutex
	config Config
	now    func() time.Time
}

// NewWriter creates a writer.
func NewWriter(cfg Config) *Writer {
	if cfg.Dir == "" {
		cfg.Dir = DefaultConfig().Dir
	}
	return &Writer{config: cfg, now: time.Now}
}

// RunPath returns the export directory of a run.
func (w *Writer) RunPath(runID string) string {
	return filepath.Join(w.config.Dir, sanitizeFilename(runID))
}

// Document renders the exportable markdown of a run: the final report of a
// completed research run, or the analyst panel of a persona run. Other runs
// have nothing to export and yield core.ErrReportNotReady.
func (w *Writer) Document(cp *core.Checkpoint) (string, error) {
	var body string
	switch {
	case cp.Kind == core.KindPersona && len(cp.State.Analysts) > 0 && cp.Status == core.RunStatusCompleted:
		body = renderAnalystsTemplate(cp.State.Topic, cp.State.Analysts)
	case cp.Status == core.RunStatusCompleted && cp.State.FinalReport != "":
		body = cp.State.FinalReport
	default:
		return "", core.ErrNotReady(cp.RunID, cp.Status)
	}
	body += renderErrorsTemplate(cp.State.Errors)

	names := make([]string, len(cp.State.Analysts))
	for i, a := range cp.State.Analysts {
		names[i] = a.Name
	}
	fm := NewFrontmatter()
	fm.Set("title", cp.State.Topic)
	fm.Set("run_id", cp.RunID)
	fm.Set("kind", string(cp.Kind))
	fm.Set("status", string(cp.Status))
	fm.Set("analysts", names)
	fm.Set("sections", len(cp.State.Sections))
	fm.Set("words", countWords(cp.State.FinalReport))
	fm.Set("generated_at", w.formatTime(w.now()))

	header, err := fm.Render()
	if err != nil {
		return "", err
	}
	return header + body + "\n", nil
}

// Export writes the run's document to <dir>/<run id>/report.md, plus one
// file per section under sections/. It returns the document path.
func (w *Writer) Export(cp *core.Checkpoint) (string, error) {
	doc, err := w.Document(cp)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	runDir := w.RunPath(cp.RunID)
	if err := os.MkdirAll(runDir, 0o750); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", runDir, err)
	}
	path := filepath.Join(runDir, "report.md")
	if err := w.writeFile(runDir, path, doc); err != nil {
		return "", err
	}

	if len(cp.State.Sections) == 0 {
		return path, nil
	}
	sectionsDir := filepath.Join(runDir, "sections")
	if err := os.MkdirAll(sectionsDir, 0o750); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", sectionsDir, err)
	}
	for _, sec := range cp.State.Sections {
		name := fmt.Sprintf("%02d-%s.md", sec.AnalystIndex+1, sanitizeFilename(sec.Analyst))
		if err := w.writeFile(runDir, filepath.Join(sectionsDir, name), sec.Content+"\n"); err != nil {
			return "", err
		}
	}
	return path, nil
}

// WriteTo writes the run's document to a caller-chosen path.
func (w *Writer) WriteTo(cp *core.Checkpoint, path string) error {
	doc, err := w.Document(cp)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := fsutil.WriteFileAtomic(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

func (w *Writer) formatTime(t time.Time) string {
	if w.config.UseUTC {
		t = t.UTC()
	}
	return t.Format(time.RFC3339)
}

func (w *Writer) writeFile(base, path, content string) error {
	if err := ensureWithin(base, path); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func ensureWithin(base, path string) error {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("resolving report directory: %w", err)
	}
	targetAbs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving report path: %w", err)
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("report path escapes run directory")
	}
	return nil
}
