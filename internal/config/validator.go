package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, err := range e {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

// Validator walks a Config and collects every error rather than stopping at
// the first.
type Validator struct {
	errors ValidationErrors
}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks every section. It returns ValidationErrors or nil.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateLLM(&cfg.LLM)
	v.validateSearch(&cfg.Search)
	v.validateResearch(&cfg.Research)
	v.validateState(&cfg.State)
	v.validateTracing(&cfg.Tracing)
	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// check records msg against field when ok is false.
func (v *Validator) check(ok bool, field string, value interface{}, msg string) {
	if !ok {
		v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
	}
}

func (v *Validator) oneOf(field, value string, allowed ...string) {
	v.check(slices.Contains(allowed, value), field, value, "must be one of "+strings.Join(allowed, ", "))
}

func (v *Validator) required(field, value string) {
	v.check(strings.TrimSpace(value) != "", field, value, "required")
}

func (v *Validator) validateLog(cfg *LogConfig) {
	v.oneOf("log.level", strings.ToLower(cfg.Level), "debug", "info", "warn", "warning", "error")
	v.oneOf("log.format", cfg.Format, "auto", "pretty", "text", "json")
}

func (v *Validator) validateLLM(cfg *LLMConfig) {
	v.oneOf("llm.provider", cfg.Provider, "anthropic", "openai")
	v.required("llm.model", cfg.Model)
	v.check(cfg.Temperature >= 0 && cfg.Temperature <= 1, "llm.temperature", cfg.Temperature, "must be between 0 and 1")
	v.check(cfg.MaxTokens > 0, "llm.max_tokens", cfg.MaxTokens, "must be positive")
	v.check(cfg.RequestsPerSecond >= 0, "llm.requests_per_second", cfg.RequestsPerSecond, "must not be negative")
	if cfg.RequestsPerSecond > 0 {
		v.check(cfg.Burst > 0, "llm.burst", cfg.Burst, "must be positive when rate limiting is enabled")
	}
}

func (v *Validator) validateSearch(cfg *SearchConfig) {
	v.check(cfg.Tavily.MaxResults > 0, "search.tavily.max_results", cfg.Tavily.MaxResults, "must be positive")
	v.check(cfg.Wikipedia.MaxDocs > 0, "search.wikipedia.max_docs", cfg.Wikipedia.MaxDocs, "must be positive")
}

func (v *Validator) validateResearch(cfg *ResearchConfig) {
	v.check(cfg.MaxAnalysts >= 1, "research.max_analysts", cfg.MaxAnalysts, "must be at least 1")
	v.check(cfg.MaxTurns >= 1, "research.max_turns", cfg.MaxTurns, "must be at least 1")
	v.check(cfg.MaxConcurrentInterviews >= 1, "research.max_concurrent_interviews", cfg.MaxConcurrentInterviews, "must be at least 1")
	v.check(cfg.CallTimeout > 0, "research.call_timeout", cfg.CallTimeout, "must be positive")
	v.check(cfg.Retry.MaxAttempts >= 1, "research.retry.max_attempts", cfg.Retry.MaxAttempts, "must be at least 1")
	v.check(cfg.Retry.MaxDelay >= cfg.Retry.BaseDelay, "research.retry.max_delay", cfg.Retry.MaxDelay, "must not be below base_delay")
}

func (v *Validator) validateState(cfg *StateConfig) {
	switch cfg.Backend {
	case "memory":
	case "sqlite", "json":
		v.required("state.path", cfg.Path)
	case "redis":
		v.required("state.redis.addr", cfg.Redis.Addr)
	default:
		v.oneOf("state.backend", cfg.Backend, "memory", "sqlite", "json", "redis")
	}
}

func (v *Validator) validateTracing(cfg *TracingConfig) {
	if cfg.Enabled {
		v.required("tracing.otlp_endpoint", cfg.OTLPEndpoint)
	}
}

// ValidateConfig runs a fresh Validator over cfg.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
