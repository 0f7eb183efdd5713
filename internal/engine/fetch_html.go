package engine

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// ErrEmptyContent is returned when a page yields no extractable text.
var ErrEmptyContent = errors.New("no extractable content")

// FetchURLContent extracts main text content from a URL using go-readability.
// Falls back to goquery, then a plain DOM text walk when extraction fails.
// maxChars <= 0 means no limit.
func FetchURLContent(ctx context.Context, rawURL string, maxChars int) (title, content string, err error) {
	metrics.FetchRequests.Add(1)
	defer func() {
		if err != nil {
			metrics.FetchErrors.Add(1)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout())
	defer cancel()

	body, err := fetchBody(ctx, rawURL, acceptHTML)
	if err != nil {
		return "", "", err
	}

	title, content = ExtractContent(body, rawURL)
	if content == "" {
		return title, "", ErrEmptyContent
	}
	if maxChars > 0 && len(content) > maxChars {
		content = TruncateRunes(content, maxChars, "...")
	}
	return title, content, nil
}

// ExtractContent runs the readability → goquery → DOM text fallback chain on
// an HTML body.
func ExtractContent(body []byte, rawURL string) (title, content string) {
	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		md, err := htmltomarkdown.ConvertString(article.Content)
		if err != nil || strings.TrimSpace(md) == "" {
			md = article.TextContent
		}
		return article.Title, strings.TrimSpace(md)
	}

	if title, content = extractWithGoquery(body); content != "" {
		return title, content
	}
	return title, extractDOMText(body)
}

// extractWithGoquery uses goquery for structured HTML parsing when readability fails.
func extractWithGoquery(body []byte) (title, content string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title, _ = doc.Find("meta[property='og:title']").First().Attr("content")
	}

	doc.Find(strings.Join([]string{
		"script", "style", "noscript", "iframe", "svg",
		"header", "footer", "nav", "aside",
		".advertisement", ".ad", ".sidebar", ".comments",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	}, ", ")).Remove()

	sel := doc.Find("article, main, .content, .post-content, .article-content, #content").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	return title, CollapseSpaces(sel.Text())
}

// extractDOMText walks the parsed DOM and joins every visible text node.
func extractDOMText(body []byte) string {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return CollapseSpaces(sb.String())
}
