package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.opentelemetry.io/otel/trace"
)

// envelope sits outermost in every logger built by New. It redacts the
// message and attributes, then stamps trace_id and span_id from ctx.
type envelope struct {
	next      slog.Handler
	sanitizer *Sanitizer
}

func newEnvelope(next slog.Handler, s *Sanitizer) slog.Handler {
	return &envelope{next: next, sanitizer: s}
}

func (h *envelope) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *envelope) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.sanitizer.Sanitize(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, out)
}

func (h *envelope) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		clean = append(clean, h.redact(a))
	}
	return &envelope{next: h.next.WithAttrs(clean), sanitizer: h.sanitizer}
}

func (h *envelope) WithGroup(name string) slog.Handler {
	return &envelope{next: h.next.WithGroup(name), sanitizer: h.sanitizer}
}

func (h *envelope) redact(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.sanitizer.Sanitize(v.String()))
	case slog.KindGroup:
		group := v.Group()
		clean := make([]slog.Attr, len(group))
		for i, g := range group {
			clean[i] = h.redact(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case slog.KindAny:
		if err, ok := v.Any().(error); ok && err != nil {
			return slog.String(a.Key, h.sanitizer.Sanitize(err.Error()))
		}
	}
	return a
}

var levelBadges = []struct {
	min   slog.Level
	label string
	style lipgloss.Style
}{
	{slog.LevelError, "ERR", lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)},
	{slog.LevelWarn, "WRN", lipgloss.NewStyle().Foreground(lipgloss.Color("3"))},
	{slog.LevelInfo, "INF", lipgloss.NewStyle().Foreground(lipgloss.Color("4"))},
	{slog.LevelDebug - 100, "DBG", lipgloss.NewStyle().Foreground(lipgloss.Color("8"))},
}

var attrKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

// PrettyHandler writes one colored line per record for interactive terminals:
// time, level badge, message, then key=value pairs.
type PrettyHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	prefix string // group path, dot terminated
	fields string // pre-rendered WithAttrs pairs
}

func NewPrettyHandler(w io.Writer, level slog.Leveler) *PrettyHandler {
	return &PrettyHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(badge(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		writePair(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.fields)
	for _, a := range attrs {
		writePair(&b, h.prefix, a)
	}
	next := *h
	next.fields = b.String()
	return &next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func badge(level slog.Level) string {
	for _, lb := range levelBadges {
		if level >= lb.min {
			return lb.style.Render(lb.label)
		}
	}
	return level.String()
}

func writePair(b *strings.Builder, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, g := range v.Group() {
			writePair(b, inner, g)
		}
		return
	}
	if a.Key == "" {
		return
	}
	b.WriteByte(' ')
	b.WriteString(attrKeyStyle.Render(prefix + a.Key))
	b.WriteByte('=')
	b.WriteString(v.String())
}
