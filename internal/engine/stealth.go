package engine

import (
	"context"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// DefaultRetryConfig is the backoff policy used for every outbound fetch.
var DefaultRetryConfig = stealth.DefaultRetryConfig

// ChromeHeaders returns a browser-like header set for scraped search pages.
func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }

// RandomUserAgent picks a desktop browser user agent.
func RandomUserAgent() string { return stealth.RandomUserAgent() }

func RetryDo[T any](ctx context.Context, rc stealth.RetryConfig, fn func() (T, error)) (T, error) {
	return stealth.RetryDo(ctx, rc, fn)
}

func RetryHTTP(ctx context.Context, rc stealth.RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, fn)
}
