package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_research/internal/engine"
)

func TestNewTavily_MissingKey(t *testing.T) {
	_, err := NewTavily("", "", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrMissingCredential))
}

func TestTavilySearch(t *testing.T) {
	var got tavilyRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"query":"quantum computing","results":[
			{"url":"https://a.example/q","title":"A","content":"alpha","score":0.9},
			{"url":"https://b.example/q","title":"B","content":"beta","score":0.7}
		]}`)
	}))
	defer srv.Close()

	tv, err := NewTavily("tvly-key", srv.URL, 0)
	require.NoError(t, err)

	results, err := tv.Search(context.Background(), "quantum computing")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tvly-key", auth)
	assert.Equal(t, "quantum computing", got.Query)
	assert.Equal(t, "basic", got.SearchDepth)
	assert.Equal(t, 5, got.MaxResults)
	assert.False(t, got.IncludeRawContent)

	require.Len(t, results, 2)
	assert.Equal(t, engine.SearchResult{Title: "A", Content: "alpha", URL: "https://a.example/q", Score: 0.9}, results[0])
}

func TestTavilySearch_Truncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"url":"1"},{"url":"2"},{"url":"3"}]}`)
	}))
	defer srv.Close()

	tv, err := NewTavily("k", srv.URL, 2)
	require.NoError(t, err)
	results, err := tv.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestTavilySearch_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	tv, err := NewTavily("bad", srv.URL, 0)
	require.NoError(t, err)
	_, err = tv.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
