package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_research/internal/engine"
)

const (
	tavilyAPIBase        = "https://api.tavily.com"
	tavilyDefaultResults = 5
)

type tavilyRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []engine.SearchResult `json:"results"`
}

// Tavily is a web search backend for the Tavily /search API.
type Tavily struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *http.Client
}

// NewTavily creates a Tavily client. Empty baseURL selects the public API;
// maxResults <= 0 selects 5.
func NewTavily(apiKey, baseURL string, maxResults int) (*Tavily, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily: %w: TAVILY_API_KEY", engine.ErrMissingCredential)
	}
	if baseURL == "" {
		baseURL = tavilyAPIBase
	}
	if maxResults <= 0 {
		maxResults = tavilyDefaultResults
	}
	return &Tavily{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		client:     engine.HTTPClient(),
	}, nil
}

// Search runs one basic-depth search without raw page content.
func (t *Tavily) Search(ctx context.Context, query string) ([]engine.SearchResult, error) {
	engine.IncrWebSearch()

	body, err := json.Marshal(tavilyRequest{
		Query:             query,
		SearchDepth:       "basic",
		MaxResults:        t.maxResults,
		IncludeRawContent: false,
	})
	if err != nil {
		return nil, err
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return t.client.Do(req)
	})
	if err != nil {
		engine.IncrWebSearchError()
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		engine.IncrWebSearchError()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("tavily search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		engine.IncrWebSearchError()
		return nil, fmt.Errorf("tavily search: decode: %w", err)
	}
	if len(out.Results) > t.maxResults {
		out.Results = out.Results[:t.maxResults]
	}
	return out.Results, nil
}
