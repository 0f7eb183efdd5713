package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// githubBlobRe matches github.com/:owner/:repo/blob/:ref/:path
var githubBlobRe = regexp.MustCompile(`^https?://github\.com/([^/]+/[^/]+)/blob/([^/]+)/(.+)$`)

// GithubRawURL converts a GitHub blob URL to raw.githubusercontent.com.
// Non-GitHub URLs are returned unchanged.
func GithubRawURL(u string) string {
	m := githubBlobRe.FindStringSubmatch(u)
	if m == nil {
		return u
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", m[1], m[2], m[3])
}

// FetchRawContent fetches a URL as plain text (no readability extraction).
// Used for text documents submitted by URL instead of by local path.
func FetchRawContent(ctx context.Context, rawURL string, maxChars int) (string, error) {
	metrics.FetchRequests.Add(1)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout())
	defer cancel()

	body, err := fetchBody(ctx, GithubRawURL(rawURL), acceptText)
	if err != nil {
		metrics.FetchErrors.Add(1)
		return "", err
	}

	text := strings.TrimSpace(string(body))
	if maxChars > 0 && len(text) > maxChars {
		text = TruncateRunes(text, maxChars, "...")
	}
	return text, nil
}
