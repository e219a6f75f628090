package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // default: https://api.openai.com/v1
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAI implements core.LanguageModel over /chat/completions. Any server
// speaking that protocol works, including a local Ollama.
type OpenAI struct {
	http        *httpClient
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAI creates an OpenAI-compatible client.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &OpenAI{
		http:        newHTTPClient("openai", baseURL, cfg.Timeout, headers),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type openAIRequest struct {
	Model       string            `json:"model"`
	Messages    []openAIMessage   `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Tools       []openAITool      `json:"tools,omitempty"`
	ToolChoice  *openAIToolChoice `json:"tool_choice,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) request(systemPrompt string, conversation []core.Message) openAIRequest {
	msgs := make([]openAIMessage, 0, len(conversation)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openAIMessage{Role: "system", Content: systemPrompt})
	}
	for _, t := range normalize(conversation) {
		msgs = append(msgs, openAIMessage{Role: string(t.Role), Content: t.Content})
	}
	return openAIRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
}

// GenerateText returns the first choice's content.
func (o *OpenAI) GenerateText(ctx context.Context, systemPrompt string, conversation []core.Message) (string, error) {
	var resp openAIResponse
	if err := o.http.do(ctx, http.MethodPost, "/chat/completions", o.request(systemPrompt, conversation), &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", malformed("openai", "empty text reply", errEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStructured forces a function call and returns its arguments.
func (o *OpenAI) GenerateStructured(ctx context.Context, systemPrompt string, conversation []core.Message, schema core.OutputSchema) (json.RawMessage, error) {
	req := o.request(systemPrompt, conversation)
	req.Tools = []openAITool{{
		Type: "function",
		Function: openAIFunction{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters:  schema.Schema,
		},
	}}
	choice := &openAIToolChoice{Type: "function"}
	choice.Function.Name = schema.Name
	req.ToolChoice = choice

	var resp openAIResponse
	if err := o.http.do(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) > 0 {
		for _, call := range resp.Choices[0].Message.ToolCalls {
			if call.Function.Name != schema.Name {
				continue
			}
			raw := json.RawMessage(call.Function.Arguments)
			if !json.Valid(raw) {
				return nil, malformed("openai", "tool arguments are not JSON", errEmptyCompletion)
			}
			return raw, nil
		}
	}
	return nil, malformed("openai", "reply has no "+schema.Name+" tool call", errEmptyCompletion)
}

// Ping lists models to verify credentials and connectivity.
func (o *OpenAI) Ping(ctx context.Context) error {
	return o.http.do(ctx, http.MethodGet, "/models", nil, nil)
}
