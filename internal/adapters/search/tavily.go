package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

const tavilyBaseURL = "https://api.tavily.com"

// TavilyConfig configures the Tavily client.
type TavilyConfig struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
}

// Tavily implements core.WebSearcher.
type Tavily struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *http.Client
}

// NewTavily creates a Tavily client.
func NewTavily(cfg TavilyConfig) *Tavily {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = tavilyBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Tavily{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		client:     newClient(cfg.Timeout),
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key,omitempty"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// SearchWeb returns up to MaxResults hits. A malformed response yields no
// results rather than an error.
func (t *Tavily) SearchWeb(ctx context.Context, query string) ([]core.WebResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	payload, err := json.Marshal(tavilyRequest{APIKey: t.apiKey, Query: query, MaxResults: t.maxResults})
	if err != nil {
		return nil, core.ErrRetrievalFailed("encoding tavily request").WithCause(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, core.ErrRetrievalFailed("building tavily request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	body, err := send(ctx, t.client, "tavily", req)
	if err != nil {
		return nil, err
	}

	var resp tavilyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil
	}
	results := make([]core.WebResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		results = append(results, core.WebResult{URL: r.URL, Content: r.Content})
		if len(results) == t.maxResults {
			break
		}
	}
	return results, nil
}

// Ping runs a trivial query to verify the key.
func (t *Tavily) Ping(ctx context.Context) error {
	_, err := t.SearchWeb(ctx, "ping")
	return err
}
