package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	stealth "github.com/anatolykoptev/go-stealth"
)

// BrowserClient issues requests with a Chrome TLS fingerprint.
type BrowserClient = stealth.BrowserClient

const (
	ddgHTMLEndpoint   = "https://html.duckduckgo.com/html/"
	startpageEndpoint = "https://www.startpage.com/sp/search"
)

// pageDoer is the subset of BrowserClient used by DirectSearcher.
type pageDoer func(method, url string, headers map[string]string, body io.Reader) ([]byte, int, error)

// DirectSearcher is the keyless web backend: DuckDuckGo's HTML endpoint
// first, Startpage when DDG yields nothing.
type DirectSearcher struct {
	do         pageDoer
	maxResults int
	ddgURL     string
	spURL      string
}

// NewDirectSearcher wraps a browser client. maxResults <= 0 selects 5.
func NewDirectSearcher(bc *BrowserClient, maxResults int) (*DirectSearcher, error) {
	if bc == nil {
		return nil, fmt.Errorf("direct search: %w: browser client", ErrMissingCredential)
	}
	return newDirectSearcher(func(method, u string, headers map[string]string, body io.Reader) ([]byte, int, error) {
		data, _, status, err := bc.Do(method, u, headers, body)
		return data, status, err
	}, maxResults), nil
}

func newDirectSearcher(do pageDoer, maxResults int) *DirectSearcher {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &DirectSearcher{do: do, maxResults: maxResults, ddgURL: ddgHTMLEndpoint, spURL: startpageEndpoint}
}

// Search returns at most maxResults results, two per domain.
func (d *DirectSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	IncrWebSearch()

	results, ddgErr := d.searchDDG(ctx, query)
	if ddgErr != nil || len(results) == 0 {
		if ddgErr != nil {
			slog.Debug("ddg direct failed, trying startpage", slog.Any("error", ddgErr))
		}
		var spErr error
		results, spErr = d.searchStartpage(ctx, query)
		if spErr != nil {
			IncrWebSearchError()
			return nil, errors.Join(ddgErr, spErr)
		}
	}

	results = DedupByDomain(results, 2)
	if len(results) > d.maxResults {
		results = results[:d.maxResults]
	}
	slog.Debug("direct search results", slog.String("query", query), slog.Int("count", len(results)))
	return results, nil
}

func (d *DirectSearcher) post(ctx context.Context, endpoint, referer string, form url.Values) ([]byte, error) {
	headers := ChromeHeaders()
	headers["referer"] = referer
	headers["content-type"] = "application/x-www-form-urlencoded"
	headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	body := form.Encode()

	return RetryDo(ctx, DefaultRetryConfig, func() ([]byte, error) {
		data, status, err := d.do("POST", endpoint, headers, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		if status != 200 {
			return nil, fmt.Errorf("%s status %d", endpoint, status)
		}
		return data, nil
	})
}

func (d *DirectSearcher) searchDDG(ctx context.Context, query string) ([]SearchResult, error) {
	data, err := d.post(ctx, d.ddgURL, "https://html.duckduckgo.com/", url.Values{
		"q":  {query},
		"kl": {"wt-wt"},
		"df": {""},
	})
	if err != nil {
		return nil, fmt.Errorf("ddg: %w", err)
	}
	return parseDDGHTML(data)
}

func (d *DirectSearcher) searchStartpage(ctx context.Context, query string) ([]SearchResult, error) {
	data, err := d.post(ctx, d.spURL, "https://www.startpage.com/", url.Values{
		"query":    {query},
		"cat":      {"web"},
		"language": {"english"},
	})
	if err != nil {
		return nil, fmt.Errorf("startpage: %w", err)
	}
	return parseStartpageHTML(data)
}

// parseDDGHTML extracts results from the DDG HTML lite page.
func parseDDGHTML(data []byte) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []SearchResult
	doc.Find(".result, .web-result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.result__a, .result__title a, a.result-link").First()
		title := strings.TrimSpace(link.Text())
		href, ok := link.Attr("href")
		if !ok || title == "" {
			return
		}
		if href = ddgUnwrapURL(href); href == "" {
			return
		}
		results = append(results, SearchResult{
			Title:   title,
			Content: CollapseSpaces(s.Find(".result__snippet, .result__body").First().Text()),
			URL:     href,
			Score:   1.0,
		})
	})
	return results, nil
}

// ddgUnwrapURL resolves DDG redirect links (//duckduckgo.com/l/?uddg=...).
func ddgUnwrapURL(href string) string {
	if strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				return target
			}
		}
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return ""
}

// parseStartpageHTML extracts results from a Startpage results page.
func parseStartpageHTML(data []byte) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []SearchResult
	doc.Find(".w-gl__result, .result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.w-gl__result-title, h3 a, a.result-link").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" || strings.Contains(href, "startpage.com/do/") {
			return
		}
		results = append(results, SearchResult{
			Title:   title,
			Content: CollapseSpaces(s.Find("p.w-gl__description, .w-gl__description, p.result-description").First().Text()),
			URL:     href,
			Score:   1.0,
		})
	})
	return results, nil
}
