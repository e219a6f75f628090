package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// Provider labels used in evidence records.
const (
	ProviderWeb       = "web"
	ProviderKnowledge = "knowledge"
)

// Document is one retrieval result.
type Document struct {
	Source  string
	Page    string
	Content string
}

// Format renders d as a tagged document block.
func (d Document) Format() string {
	if d.Page != "" {
		return fmt.Sprintf("<Document source=%q page=%q/>\n%s\n</Document>", d.Source, d.Page, d.Content)
	}
	return fmt.Sprintf("<Document source=%q/>\n%s\n</Document>", d.Source, d.Content)
}

// FormatDocuments joins the formatted documents with the document separator.
func FormatDocuments(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		parts = append(parts, d.Format())
	}
	return strings.Join(parts, core.DocumentSeparator)
}

// Retriever fetches evidence for a query.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, query string) ([]Document, error)
}

// WebRetriever adapts a core.WebSearcher.
type WebRetriever struct {
	searcher core.WebSearcher
}

// NewWebRetriever creates a web retriever. A nil searcher yields no results.
func NewWebRetriever(searcher core.WebSearcher) *WebRetriever {
	return &WebRetriever{searcher: searcher}
}

func (r *WebRetriever) Name() string { return ProviderWeb }

// Retrieve runs a web search.
func (r *WebRetriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	if r.searcher == nil {
		return nil, nil
	}
	results, err := r.searcher.SearchWeb(ctx, query)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(results))
	for _, res := range results {
		source := res.URL
		if source == "" {
			source = "unknown"
		}
		docs = append(docs, Document{Source: source, Content: res.Content})
	}
	return docs, nil
}

// KnowledgeRetriever adapts a core.KnowledgeBase.
type KnowledgeRetriever struct {
	kb      core.KnowledgeBase
	maxDocs int
}

// NewKnowledgeRetriever creates an encyclopedic retriever returning at most
// maxDocs documents. A nil knowledge base yields no results.
func NewKnowledgeRetriever(kb core.KnowledgeBase, maxDocs int) *KnowledgeRetriever {
	if maxDocs <= 0 {
		maxDocs = 2
	}
	return &KnowledgeRetriever{kb: kb, maxDocs: maxDocs}
}

func (r *KnowledgeRetriever) Name() string { return ProviderKnowledge }

// Retrieve searches the knowledge base.
func (r *KnowledgeRetriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	if r.kb == nil {
		return nil, nil
	}
	found, err := r.kb.SearchKnowledgeBase(ctx, query, r.maxDocs)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(found))
	for _, d := range found {
		docs = append(docs, Document{Source: d.Source, Page: d.Page, Content: d.Content})
	}
	return docs, nil
}
