package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config selects and configures a provider.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Model is a language model that also supports a connectivity check.
type Model interface {
	core.LanguageModel
	core.Pinger
}

// New creates the configured provider.
func New(cfg Config) (Model, error) {
	if cfg.Model == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "llm.model is required")
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, core.ErrAuth("anthropic API key is not set (ANTHROPIC_API_KEY)")
		}
		return NewAnthropic(AnthropicConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}), nil
	case ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}), nil
	default:
		return nil, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("unknown llm provider %q", cfg.Provider))
	}
}
