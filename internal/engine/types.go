package engine

import "errors"

// ErrMissingCredential is returned by constructors that need an API key or URL
// that was not configured.
var ErrMissingCredential = errors.New("missing required credential")

// SearchResult is one web/document search hit. Shared by the SearXNG and
// Tavily backends so the rest of the pipeline sees a single shape.
type SearchResult struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}

type searxngResponse struct {
	Results []SearchResult `json:"results"`
}

// FactItem is a single fact with explicit source indices.
type FactItem struct {
	Point   string `json:"point"`   // complete sentence, no markdown
	Sources []int  `json:"sources"` // 1-based indices into the sources list
}

// LLMStructuredOutput is the JSON shape the answer prompt asks for.
type LLMStructuredOutput struct {
	Answer string     `json:"answer"`
	Facts  []FactItem `json:"facts,omitempty"`
}
