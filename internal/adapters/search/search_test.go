package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

func TestTavily_SearchWeb(t *testing.T) {
	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[
			{"url":"https://a.example","content":"alpha"},
			{"url":"https://b.example","content":"  "},
			{"url":"https://c.example","content":"gamma"}
		]}`))
	}))
	defer srv.Close()

	tv := NewTavily(TavilyConfig{APIKey: "tvly-test", BaseURL: srv.URL, MaxResults: 3})
	results, err := tv.SearchWeb(context.Background(), "solar storage")

	require.NoError(t, err)
	assert.Equal(t, []core.WebResult{
		{URL: "https://a.example", Content: "alpha"},
		{URL: "https://c.example", Content: "gamma"},
	}, results)
	assert.Equal(t, "solar storage", got.Query)
	assert.Equal(t, 3, got.MaxResults)
}

func TestTavily_MalformedIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops`))
	}))
	defer srv.Close()

	results, err := NewTavily(TavilyConfig{BaseURL: srv.URL}).SearchWeb(context.Background(), "q")
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestTavily_ServerErrorIsRetrieval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewTavily(TavilyConfig{BaseURL: srv.URL}).SearchWeb(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRetrieval))
	assert.True(t, core.IsRetryable(err))
}

func TestTavily_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewTavily(TavilyConfig{BaseURL: srv.URL}).SearchWeb(ctx, "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWikipedia_SearchKnowledgeBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "search", q.Get("generator"))
		assert.Equal(t, "grid storage", q.Get("gsrsearch"))
		assert.Equal(t, "2", q.Get("gsrlimit"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"query":{"pages":[
			{"title":"Battery","index":2,"extract":"Batteries store energy.","fullurl":"https://en.wikipedia.org/wiki/Battery"},
			{"title":"Grid energy storage","index":1,"extract":"Grid storage...","fullurl":"https://en.wikipedia.org/wiki/Grid_energy_storage"}
		]}}`))
	}))
	defer srv.Close()

	wiki := NewWikipedia(WikipediaConfig{BaseURL: srv.URL})
	docs, err := wiki.SearchKnowledgeBase(context.Background(), "grid storage", 2)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Grid energy storage", docs[0].Page)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Grid_energy_storage", docs[0].Source)
	assert.Equal(t, "Battery", docs[1].Page)
}

func TestWikipedia_EmptyAndMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"batchcomplete":true}`))
	}))
	defer srv.Close()

	wiki := NewWikipedia(WikipediaConfig{BaseURL: srv.URL})
	docs, err := wiki.SearchKnowledgeBase(context.Background(), "nothing", 2)
	assert.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = wiki.SearchKnowledgeBase(context.Background(), "", 2)
	assert.NoError(t, err)
	assert.Empty(t, docs)
}

func TestWikipedia_DefaultEndpoint(t *testing.T) {
	assert.Equal(t, "https://de.wikipedia.org/w/api.php", NewWikipedia(WikipediaConfig{Language: "de"}).endpoint)
}
