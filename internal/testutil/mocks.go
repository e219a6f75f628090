package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// MockCall records a call to a mock.
type MockCall struct {
	Method       string
	System       string
	Conversation []core.Message
	Schema       string
	Query        string
	Timestamp    time.Time
}

type callLog struct {
	mu    sync.Mutex
	calls []MockCall
}

func (l *callLog) record(c MockCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c.Timestamp = time.Now()
	l.calls = append(l.calls, c)
}

// Calls returns all recorded calls.
func (l *callLog) Calls() []MockCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]MockCall(nil), l.calls...)
}

// CallCount returns the number of calls to method.
func (l *callLog) CallCount(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, c := range l.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears recorded calls.
func (l *callLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// TextFunc answers GenerateText.
type TextFunc func(ctx context.Context, system string, conversation []core.Message) (string, error)

// StructuredFunc answers GenerateStructured.
type StructuredFunc func(ctx context.Context, system string, conversation []core.Message, schema core.OutputSchema) (json.RawMessage, error)

// MockModel implements core.LanguageModel and core.Pinger for testing.
type MockModel struct {
	callLog
	textFunc       TextFunc
	structuredFunc StructuredFunc
	pingFunc       func(context.Context) error
}

// NewMockModel creates a model that echoes a short preview of the last turn
// and answers structured calls with "{}".
func NewMockModel() *MockModel {
	return &MockModel{}
}

// WithTextFunc sets the GenerateText behavior.
func (m *MockModel) WithTextFunc(fn TextFunc) *MockModel {
	m.textFunc = fn
	return m
}

// WithStructuredFunc sets the GenerateStructured behavior.
func (m *MockModel) WithStructuredFunc(fn StructuredFunc) *MockModel {
	m.structuredFunc = fn
	return m
}

// WithPingFunc sets the Ping behavior.
func (m *MockModel) WithPingFunc(fn func(context.Context) error) *MockModel {
	m.pingFunc = fn
	return m
}

// WithError makes every call fail with err.
func (m *MockModel) WithError(err error) *MockModel {
	m.textFunc = func(context.Context, string, []core.Message) (string, error) { return "", err }
	m.structuredFunc = func(context.Context, string, []core.Message, core.OutputSchema) (json.RawMessage, error) {
		return nil, err
	}
	return m
}

// GenerateText implements core.LanguageModel.
func (m *MockModel) GenerateText(ctx context.Context, system string, conversation []core.Message) (string, error) {
	m.record(MockCall{Method: "GenerateText", System: system, Conversation: copyMessages(conversation)})
	if m.textFunc != nil {
		return m.textFunc(ctx, system, conversation)
	}
	last := ""
	if len(conversation) > 0 {
		last = conversation[len(conversation)-1].Content
	}
	if len(last) > 50 {
		last = last[:50]
	}
	return fmt.Sprintf("Mock response for: %s", last), nil
}

// GenerateStructured implements core.LanguageModel.
func (m *MockModel) GenerateStructured(ctx context.Context, system string, conversation []core.Message, schema core.OutputSchema) (json.RawMessage, error) {
	m.record(MockCall{Method: "GenerateStructured", System: system, Conversation: copyMessages(conversation), Schema: schema.Name})
	if m.structuredFunc != nil {
		return m.structuredFunc(ctx, system, conversation, schema)
	}
	return json.RawMessage(`{}`), nil
}

// Ping implements core.Pinger.
func (m *MockModel) Ping(ctx context.Context) error {
	m.record(MockCall{Method: "Ping"})
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// CallsWithSystem returns the GenerateText calls whose system prompt
// contains substr.
func (m *MockModel) CallsWithSystem(substr string) []MockCall {
	var out []MockCall
	for _, c := range m.Calls() {
		if c.Method == "GenerateText" && strings.Contains(c.System, substr) {
			out = append(out, c)
		}
	}
	return out
}

// AnalystsJSON encodes analysts the way a model answers the perspectives
// schema.
func AnalystsJSON(analysts ...core.Analyst) json.RawMessage {
	data, err := json.Marshal(map[string][]core.Analyst{"analysts": analysts})
	if err != nil {
		panic(err)
	}
	return data
}

// MockWebSearcher implements core.WebSearcher for testing.
type MockWebSearcher struct {
	callLog
	searchFunc func(context.Context, string) ([]core.WebResult, error)
}

// NewMockWebSearcher creates a searcher returning results for every query.
func NewMockWebSearcher(results ...core.WebResult) *MockWebSearcher {
	return &MockWebSearcher{
		searchFunc: func(context.Context, string) ([]core.WebResult, error) {
			return append([]core.WebResult(nil), results...), nil
		},
	}
}

// WithSearchFunc sets the search behavior.
func (m *MockWebSearcher) WithSearchFunc(fn func(context.Context, string) ([]core.WebResult, error)) *MockWebSearcher {
	m.searchFunc = fn
	return m
}

// WithError makes every search fail with err.
func (m *MockWebSearcher) WithError(err error) *MockWebSearcher {
	return m.WithSearchFunc(func(context.Context, string) ([]core.WebResult, error) { return nil, err })
}

// SearchWeb implements core.WebSearcher.
func (m *MockWebSearcher) SearchWeb(ctx context.Context, query string) ([]core.WebResult, error) {
	m.record(MockCall{Method: "SearchWeb", Query: query})
	return m.searchFunc(ctx, query)
}

// MockKnowledgeBase implements core.KnowledgeBase for testing.
type MockKnowledgeBase struct {
	callLog
	searchFunc func(context.Context, string, int) ([]core.KnowledgeDocument, error)
}

// NewMockKnowledgeBase creates a knowledge base returning at most maxDocs of
// docs for every query.
func NewMockKnowledgeBase(docs ...core.KnowledgeDocument) *MockKnowledgeBase {
	return &MockKnowledgeBase{
		searchFunc: func(_ context.Context, _ string, maxDocs int) ([]core.KnowledgeDocument, error) {
			out := append([]core.KnowledgeDocument(nil), docs...)
			if maxDocs > 0 && len(out) > maxDocs {
				out = out[:maxDocs]
			}
			return out, nil
		},
	}
}

// WithSearchFunc sets the search behavior.
func (m *MockKnowledgeBase) WithSearchFunc(fn func(context.Context, string, int) ([]core.KnowledgeDocument, error)) *MockKnowledgeBase {
	m.searchFunc = fn
	return m
}

// WithError makes every search fail with err.
func (m *MockKnowledgeBase) WithError(err error) *MockKnowledgeBase {
	return m.WithSearchFunc(func(context.Context, string, int) ([]core.KnowledgeDocument, error) { return nil, err })
}

// SearchKnowledgeBase implements core.KnowledgeBase.
func (m *MockKnowledgeBase) SearchKnowledgeBase(ctx context.Context, query string, maxDocs int) ([]core.KnowledgeDocument, error) {
	m.record(MockCall{Method: "SearchKnowledgeBase", Query: query})
	return m.searchFunc(ctx, query, maxDocs)
}

func copyMessages(in []core.Message) []core.Message {
	return append([]core.Message(nil), in...)
}
