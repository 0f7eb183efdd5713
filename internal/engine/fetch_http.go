package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxFetchBody bounds how much of a document body is read.
const maxFetchBody = 8 * 1024 * 1024

const (
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptText = "text/plain,*/*;q=0.9"
)

// fetchBody GETs fetchURL through the shared client, retrying transient
// failures, and returns the (decompressed) body. Any non-200 final status
// is an error.
func fetchBody(ctx context.Context, fetchURL, accept string) ([]byte, error) {
	resp, err := RetryHTTP(ctx, DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", RandomUserAgent())
		req.Header.Set("Accept", accept)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", "gzip")
		return httpClient().Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", fetchURL, resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", fetchURL, err)
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, maxFetchBody))
}
