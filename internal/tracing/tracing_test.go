package tracing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitializeDisabled(t *testing.T) {
	shutdown, err := Initialize(context.Background(), Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	if W3CTraceparent(ctx) != "" {
		t.Error("expected no traceparent without a provider")
	}
}

func TestSpanRecording(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("test")
	defer func() {
		otel.SetTracerProvider(prev)
		tracer = otel.Tracer(defaultServiceName)
	}()

	ctx, span := StartSpan(context.Background(), "interview")
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	InjectTraceparent(ctx, req)
	End(span, errors.New("boom"))

	if tp := req.Header.Get("traceparent"); !strings.HasPrefix(tp, "00-") {
		t.Errorf("traceparent = %q", tp)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "interview" || len(spans[0].Events) == 0 {
		t.Errorf("unexpected span %+v", spans[0])
	}
}
