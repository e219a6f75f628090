package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// maxExtractChars bounds the content kept per article.
const maxExtractChars = 4000

// WikipediaConfig configures the MediaWiki client.
type WikipediaConfig struct {
	BaseURL   string // full api.php URL; derived from Language when empty
	Language  string
	UserAgent string
	Timeout   time.Duration
}

// Wikipedia implements core.KnowledgeBase over the MediaWiki action API.
type Wikipedia struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewWikipedia creates a Wikipedia client.
func NewWikipedia(cfg WikipediaConfig) *Wikipedia {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		lang := cfg.Language
		if lang == "" {
			lang = "en"
		}
		endpoint = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "quorum-research/1.0"
	}
	return &Wikipedia{endpoint: endpoint, userAgent: ua, client: newClient(cfg.Timeout)}
}

type wikiResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Index   int    `json:"index"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
}

// SearchKnowledgeBase returns the plain-text extracts of the top maxDocs
// articles in search rank order.
func (w *Wikipedia) SearchKnowledgeBase(ctx context.Context, query string, maxDocs int) ([]core.KnowledgeDocument, error) {
	if strings.TrimSpace(query) == "" || maxDocs <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", strconv.Itoa(maxDocs))
	params.Set("prop", "extracts|info")
	params.Set("inprop", "url")
	params.Set("explaintext", "1")
	params.Set("exlimit", "max")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, core.ErrRetrievalFailed("building wikipedia request").WithCause(err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	body, err := send(ctx, w.client, "wikipedia", req)
	if err != nil {
		return nil, err
	}

	var resp wikiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil
	}
	pages := resp.Query.Pages
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	docs := make([]core.KnowledgeDocument, 0, len(pages))
	for _, p := range pages {
		content := strings.TrimSpace(p.Extract)
		if content == "" {
			continue
		}
		if len(content) > maxExtractChars {
			content = content[:maxExtractChars]
		}
		source := p.FullURL
		if source == "" {
			source = p.Title
		}
		docs = append(docs, core.KnowledgeDocument{Source: source, Page: p.Title, Content: content})
		if len(docs) == maxDocs {
			break
		}
	}
	return docs, nil
}
