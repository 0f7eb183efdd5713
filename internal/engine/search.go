package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SearXNG is a web search backend backed by a SearXNG instance.
type SearXNG struct {
	baseURL      string
	maxResults   int
	maxPerDomain int
}

// NewSearXNG returns a SearXNG backend. baseURL is required.
func NewSearXNG(baseURL string, maxResults int) (*SearXNG, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("searxng: base URL: %w", ErrMissingCredential)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearXNG{baseURL: strings.TrimRight(baseURL, "/"), maxResults: maxResults, maxPerDomain: 2}, nil
}

// Search runs one query and returns at most maxResults hits, two per domain.
func (s *SearXNG) Search(ctx context.Context, query string) ([]SearchResult, error) {
	results, err := SearchSearXNG(ctx, s.baseURL, query, "all", "")
	if err != nil {
		return nil, err
	}
	top := DedupByDomain(results, s.maxPerDomain)
	if len(top) > s.maxResults {
		top = top[:s.maxResults]
	}
	return top, nil
}

// SearchSearXNG queries the SearXNG instance and returns raw results.
func SearchSearXNG(ctx context.Context, baseURL, query, language, timeRange string) ([]SearchResult, error) {
	u, err := url.Parse(baseURL + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	if language != "" && language != "all" {
		q.Set("language", language)
	}
	if timeRange != "" {
		q.Set("time_range", timeRange)
	}
	u.RawQuery = q.Encode()

	IncrWebSearch()

	resp, err := RetryHTTP(ctx, DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", UserAgentBot)
		return httpClient().Do(req)
	})
	if err != nil {
		IncrWebSearchError()
		return nil, fmt.Errorf("searxng: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		IncrWebSearchError()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("searxng %d: %s", resp.StatusCode, string(body))
	}

	var data searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		IncrWebSearchError()
		return nil, fmt.Errorf("decode searxng: %w", err)
	}
	return data.Results, nil
}

// DedupByDomain limits results to maxPerDomain per domain.
func DedupByDomain(results []SearchResult, maxPerDomain int) []SearchResult {
	counts := make(map[string]int)
	var out []SearchResult
	for _, r := range results {
		u, err := url.Parse(r.URL)
		if err != nil {
			continue
		}
		domain := u.Hostname()
		if counts[domain] < maxPerDomain {
			out = append(out, r)
			counts[domain]++
		}
	}
	return out
}
