package service

import (
	"context"
	"encoding/json"

	"golang.org/x/time/rate"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// RateLimiter throttles calls to one provider.
type RateLimiter struct {
	limiter *rate.Limiter
}

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64 // zero disables limiting
	Burst             int
}

// NewRateLimiter creates a limiter. A zero rate never blocks.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Acquire blocks until a call is allowed or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// TryAcquire reports whether a call is allowed now without blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}

// RateLimitedModel throttles a language model.
type RateLimitedModel struct {
	model   core.LanguageModel
	limiter *RateLimiter
}

// NewRateLimitedModel wraps model with limiter.
func NewRateLimitedModel(model core.LanguageModel, limiter *RateLimiter) *RateLimitedModel {
	return &RateLimitedModel{model: model, limiter: limiter}
}

// GenerateText waits for the limiter, then delegates.
func (m *RateLimitedModel) GenerateText(ctx context.Context, systemPrompt string, conversation []core.Message) (string, error) {
	if err := m.limiter.Acquire(ctx); err != nil {
		return "", err
	}
	return m.model.GenerateText(ctx, systemPrompt, conversation)
}

// GenerateStructured waits for the limiter, then delegates.
func (m *RateLimitedModel) GenerateStructured(ctx context.Context, systemPrompt string, conversation []core.Message, schema core.OutputSchema) (json.RawMessage, error) {
	if err := m.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return m.model.GenerateStructured(ctx, systemPrompt, conversation, schema)
}

// Ping forwards to the wrapped model when it supports it.
func (m *RateLimitedModel) Ping(ctx context.Context) error {
	if p, ok := m.model.(core.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
