package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicConfig configures the Anthropic Messages API client.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Anthropic implements core.LanguageModel over the Messages API.
// Structured output is obtained by forcing a single tool call.
type Anthropic struct {
	http        *httpClient
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropic creates an Anthropic client.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Anthropic{
		http: newHTTPClient("anthropic", baseURL, cfg.Timeout, map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": anthropicVersion,
		}),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	System      string               `json:"system,omitempty"`
	Messages    []anthropicMessage   `json:"messages"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (a *Anthropic) request(systemPrompt string, conversation []core.Message) anthropicRequest {
	turns := normalize(conversation)
	msgs := make([]anthropicMessage, len(turns))
	for i, t := range turns {
		msgs[i] = anthropicMessage{Role: string(t.Role), Content: t.Content}
	}
	return anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		System:      systemPrompt,
		Messages:    msgs,
	}
}

// GenerateText returns the concatenated text blocks of the reply.
func (a *Anthropic) GenerateText(ctx context.Context, systemPrompt string, conversation []core.Message) (string, error) {
	var resp anthropicResponse
	if err := a.http.do(ctx, http.MethodPost, "/v1/messages", a.request(systemPrompt, conversation), &resp); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", malformed("anthropic", "empty text reply", errEmptyCompletion)
	}
	return sb.String(), nil
}

// GenerateStructured forces a call of a tool whose input schema is schema
// and returns the tool input.
func (a *Anthropic) GenerateStructured(ctx context.Context, systemPrompt string, conversation []core.Message, schema core.OutputSchema) (json.RawMessage, error) {
	req := a.request(systemPrompt, conversation)
	req.Tools = []anthropicTool{{
		Name:        schema.Name,
		Description: schema.Description,
		InputSchema: schema.Schema,
	}}
	req.ToolChoice = &anthropicToolChoice{Type: "tool", Name: schema.Name}

	var resp anthropicResponse
	if err := a.http.do(ctx, http.MethodPost, "/v1/messages", req, &resp); err != nil {
		return nil, err
	}
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == schema.Name && len(block.Input) > 0 {
			return block.Input, nil
		}
	}
	return nil, malformed("anthropic", "reply has no "+schema.Name+" tool call", errEmptyCompletion)
}

// Ping lists models to verify credentials and connectivity.
func (a *Anthropic) Ping(ctx context.Context) error {
	return a.http.do(ctx, http.MethodGet, "/v1/models?limit=1", nil, nil)
}
