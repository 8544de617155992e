package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/research_report/internal/search"
)

func TestClient_Search(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"query": "solid-state battery",
			"results": [
				{"title": "Solid-state battery study", "url": "https://www.nature.com/articles/s1", "content": "snippet", "score": 0.91, "published_date": "2025-02-01"},
				{"title": "Market report", "url": "https://www.reuters.com/r", "content": "market", "score": 0.5}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("tvly-test", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	resp, err := c.Search(context.Background(), &search.Request{
		Query:          "solid-state battery",
		SearchDepth:    "advanced",
		MaxResults:     35,
		IncludeDomains: []string{"nature.com"},
		ExcludeDomains: []string{"youtube.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "solid-state battery", got.Query)
	assert.Equal(t, "advanced", got.SearchDepth)
	assert.Equal(t, "general", got.Topic)
	assert.Equal(t, maxResultsLimit, got.MaxResults)
	assert.Equal(t, []string{"nature.com"}, got.IncludeDomains)
	assert.Equal(t, []string{"youtube.com"}, got.ExcludeDomains)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, search.Result{
		Title:         "Solid-state battery study",
		URL:           "https://www.nature.com/articles/s1",
		Content:       "snippet",
		PublishedDate: "2025-02-01",
	}, resp.Results[0])
}

func TestClient_SearchDefaults(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), &search.Request{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, "basic", got.SearchDepth)
	assert.Equal(t, 5, got.MaxResults)
}

func TestClient_SearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient("bad", WithBaseURL(srv.URL)).Search(context.Background(), &search.Request{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_SearchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), &search.Request{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response failed")
}
