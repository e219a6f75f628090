// Package llm implements the language model port over provider HTTP APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/tracing"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 2048

// httpClient is the shared request path of all providers.
type httpClient struct {
	provider string
	baseURL  string
	headers  map[string]string
	client   *http.Client
}

func newHTTPClient(provider, baseURL string, timeout time.Duration, headers map[string]string) *httpClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &httpClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}
}

// do sends body (if any) to path and decodes a 2xx JSON response into out.
func (c *httpClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return core.ErrValidation("INVALID_REQUEST", "encoding request").WithCause(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return core.ErrValidation("INVALID_REQUEST", "building request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	tracing.InjectTraceparent(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return core.ErrExecution("PROVIDER_UNREACHABLE", fmt.Sprintf("%s request failed", c.provider)).WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.ErrExecution("PROVIDER_UNREACHABLE", fmt.Sprintf("reading %s response", c.provider)).WithCause(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(c.provider, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return malformed(c.provider, "decoding response", err)
	}
	return nil
}

// statusError maps an HTTP failure to the domain error taxonomy.
func statusError(provider string, status int, body []byte) error {
	msg := fmt.Sprintf("%s returned %d: %s", provider, status, errorMessage(body))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrAuth(msg)
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimit(msg)
	case status == http.StatusRequestTimeout:
		return core.ErrTimeout(msg)
	case status >= 500:
		// 529 (overloaded) lands here too.
		return core.ErrExecution("PROVIDER_UNAVAILABLE", msg).WithDetail("status", status)
	default:
		err := core.ErrGenerationFailed(msg).WithDetail("status", status)
		err.Retryable = false
		return err
	}
}

// errorMessage extracts a provider error message, falling back to the raw body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		if envelope.Error.Type != "" {
			return envelope.Error.Type + ": " + envelope.Error.Message
		}
		return envelope.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

func malformed(provider, what string, cause error) error {
	return core.ErrGenerationFailed(fmt.Sprintf("%s: %s", provider, what)).WithCause(cause)
}

var errEmptyCompletion = errors.New("completion has no content")

// turn is a provider-neutral chat turn after normalization.
type turn struct {
	Role    core.Role
	Content string
}

// normalize converts an interview conversation into strictly alternating
// turns that start and end with the user. Named messages are prefixed with
// the speaker so the model can tell the analyst from the expert.
func normalize(conversation []core.Message) []turn {
	turns := make([]turn, 0, len(conversation)+1)
	for _, m := range conversation {
		content := m.Content
		if m.Name != "" {
			content = m.Name + ": " + content
		}
		role := m.Role
		if role != core.RoleAssistant {
			role = core.RoleUser
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Content += "\n\n" + content
			continue
		}
		turns = append(turns, turn{Role: role, Content: content})
	}
	if len(turns) > 0 && turns[0].Role != core.RoleUser {
		turns = append([]turn{{Role: core.RoleUser, Content: "Begin."}}, turns...)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != core.RoleUser {
		turns = append(turns, turn{Role: core.RoleUser, Content: "Continue."})
	}
	return turns
}
