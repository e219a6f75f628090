// Package search implements the evidence provider ports: Tavily for general
// web search and the MediaWiki API for encyclopedic search.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/tracing"
)

const maxErrorBody = 1024

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// send performs req and returns the body of a 2xx response. Transport and
// status failures become retrieval errors.
func send(ctx context.Context, client *http.Client, provider string, req *http.Request) ([]byte, error) {
	tracing.InjectTraceparent(ctx, req)
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.ErrRetrievalFailed(provider + " request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.ErrRetrievalFailed("reading " + provider + " response").WithCause(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody] + "..."
		}
		msg := fmt.Sprintf("%s returned %d: %s", provider, resp.StatusCode, snippet)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, core.ErrAuth(msg)
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, core.ErrRateLimit(msg)
		case resp.StatusCode >= 500:
			return nil, core.ErrRetrievalFailed(msg)
		default:
			err := core.ErrRetrievalFailed(msg)
			err.Retryable = false
			return nil, err
		}
	}
	return body, nil
}
