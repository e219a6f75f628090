package research

import (
	"context"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/logging"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/metrics"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// invoker runs external calls under the call policy, recording metrics,
// spans and retry logs.
type invoker struct {
	policy service.CallPolicy
	logger *logging.Logger
}

func invoke[T any](ctx context.Context, inv invoker, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartSpan(ctx, "research."+op, attribute.String("operation", op))
	policy := inv.policy.WithNotify(func(attempt int, err error, delay time.Duration) {
		metrics.Retries.WithLabelValues(op).Inc()
		inv.logger.Warn("retrying call",
			"operation", op,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	})

	start := time.Now()
	v, err := service.Call(ctx, policy, op, fn)
	metrics.RecordCall(op, time.Since(start), err)
	tracing.End(span, err)
	return v, err
}
