package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Logger wraps slog.Logger with research-run context helpers.
type Logger struct {
	*slog.Logger
	sanitizer *Sanitizer
}

// Config configures the logger.
type Config struct {
	Level     string
	Format    string // auto, pretty, text, json
	Output    io.Writer
	AddSource bool
	Secrets   []string // exact values to redact
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "auto",
		Output: os.Stderr,
	}
}

// New builds a logger whose output is always redacted and trace-correlated.
// Format "auto" picks the pretty console handler on a terminal and JSON
// otherwise.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	sanitizer := NewSanitizer()
	for _, s := range cfg.Secrets {
		sanitizer.AddSecret(s)
	}
	base := baseHandler(cfg, parseLevel(cfg.Level))
	return &Logger{
		Logger:    slog.New(newEnvelope(base, sanitizer)),
		sanitizer: sanitizer,
	}
}

func baseHandler(cfg Config, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	format := strings.ToLower(cfg.Format)
	if format == "auto" || format == "" {
		format = "json"
		if isTerminal(cfg.Output) {
			format = "pretty"
		}
	}
	switch format {
	case "text":
		return slog.NewTextHandler(cfg.Output, opts)
	case "pretty":
		return NewPrettyHandler(cfg.Output, level)
	default:
		return slog.NewJSONHandler(cfg.Output, opts)
	}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sanitizer: NewSanitizer(),
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// WithRun returns a logger scoped to a run.
func (l *Logger) WithRun(runID string) *Logger {
	return l.With("run_id", runID)
}

// WithStage returns a logger scoped to a pipeline stage.
func (l *Logger) WithStage(stage string) *Logger {
	return l.With("stage", stage)
}

// WithAnalyst returns a logger scoped to one interview.
func (l *Logger) WithAnalyst(name string) *Logger {
	return l.With("analyst", name)
}

// With returns a logger with custom fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		sanitizer: l.sanitizer,
	}
}

// Sanitize sanitizes a string using the logger's sanitizer.
func (l *Logger) Sanitize(input string) string {
	return l.sanitizer.Sanitize(input)
}
