package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_research/internal/engine"
)

// ContentType tags what a locator points at.
type ContentType string

const (
	ContentWebPage ContentType = "web_page"
	ContentText    ContentType = "text"
)

var (
	// ErrUnsupportedType is returned by Add for unknown content types.
	ErrUnsupportedType = errors.New("unsupported content type")
	// ErrEmptyDocument is returned by Add when a locator has no usable text.
	ErrEmptyDocument = errors.New("document has no text")
)

// Hit is one ranked chunk.
type Hit struct {
	Locator string  `json:"locator"`
	Title   string  `json:"title,omitempty"`
	Chunk   int     `json:"chunk"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Answer is an LLM answer grounded on retrieved chunks.
type Answer struct {
	Question string            `json:"question"`
	Answer   string            `json:"answer"`
	Facts    []engine.FactItem `json:"facts,omitempty"`
	Sources  []Hit             `json:"sources"`
}

// Index ingests locators into a Store and answers similarity queries.
type Index struct {
	store    Store
	embedder Embedder
	chunking ChunkOptions
	maxChars int
	now      func() time.Time

	fetchPage func(ctx context.Context, url string, maxChars int) (title, content string, err error)
	fetchText func(ctx context.Context, url string, maxChars int) (string, error)

	mu sync.Mutex // serialises Replace calls
}

// Option configures an Index.
type Option func(*Index)

// WithChunking sets the chunk window.
func WithChunking(o ChunkOptions) Option { return func(ix *Index) { ix.chunking = o } }

// WithMaxChars caps how much text a fetched URL contributes. 0 = unlimited.
// Local files are read whole: transcript files grow by appending, and a cap
// would cut their newest records.
func WithMaxChars(n int) Option { return func(ix *Index) { ix.maxChars = n } }

// NewIndex wires an index over store and embedder.
func NewIndex(store Store, embedder Embedder, opts ...Option) (*Index, error) {
	if store == nil {
		return nil, errors.New("kb: store is required")
	}
	if embedder == nil {
		return nil, errors.New("kb: embedder is required")
	}
	ix := &Index{
		store:     store,
		embedder:  embedder,
		now:       time.Now,
		fetchPage: engine.FetchURLContent,
		fetchText: engine.FetchRawContent,
	}
	for _, o := range opts {
		o(ix)
	}
	return ix, nil
}

// Add loads, chunks, embeds and stores one locator. web_page locators are
// fetched and reduced to their main content; text locators are local file
// paths or URLs of plain-text documents. Re-adding a locator replaces it.
func (ix *Index) Add(ctx context.Context, locator string, ct ContentType) (err error) {
	engine.IncrIngest()
	defer func() {
		if err != nil {
			engine.IncrIngestError()
			slog.Warn("kb: add failed", slog.String("locator", locator), slog.String("type", string(ct)), slog.Any("error", err))
		}
	}()

	title, text, err := ix.load(ctx, locator, ct)
	if err != nil {
		return err
	}
	windows := Split(text, ix.chunking)
	if len(windows) == 0 {
		return fmt.Errorf("%s: %w", locator, ErrEmptyDocument)
	}

	vecs, err := ix.embedder.Embed(ctx, windows)
	if err != nil {
		return fmt.Errorf("embed %s: %w", locator, err)
	}
	if len(vecs) != len(windows) {
		return fmt.Errorf("embed %s: got %d vectors for %d chunks", locator, len(vecs), len(windows))
	}

	chunks := make([]StoredChunk, len(windows))
	for i, w := range windows {
		chunks[i] = StoredChunk{Locator: locator, Title: title, Index: i, Text: w, Vector: vecs[i]}
	}
	doc := Document{Locator: locator, ContentType: ct, Title: title, Chunks: len(chunks), AddedAt: ix.now()}

	ix.mu.Lock()
	err = ix.store.Replace(ctx, doc, chunks)
	ix.mu.Unlock()
	if err != nil {
		return fmt.Errorf("store %s: %w", locator, err)
	}

	slog.Debug("kb: added", slog.String("locator", locator), slog.Int("chunks", len(chunks)))
	return nil
}

func (ix *Index) load(ctx context.Context, locator string, ct ContentType) (title, text string, err error) {
	switch ct {
	case ContentWebPage:
		title, text, err = ix.fetchPage(ctx, locator, ix.maxChars)
		if err != nil {
			return "", "", fmt.Errorf("fetch %s: %w", locator, err)
		}
		return title, text, nil
	case ContentText:
		if isURL(locator) {
			text, err = ix.fetchText(ctx, locator, ix.maxChars)
			if err != nil {
				return "", "", fmt.Errorf("fetch %s: %w", locator, err)
			}
			return "", text, nil
		}
		data, err := os.ReadFile(locator)
		if err != nil {
			return "", "", fmt.Errorf("read %s: %w", locator, err)
		}
		return filepath.Base(locator), string(data), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedType, ct)
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Search returns the k chunks most similar to query.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	if k <= 0 {
		k = 5
	}
	qv, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) != 1 {
		return nil, errors.New("embed query: no vector returned")
	}

	chunks, err := ix.store.Chunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	hits := make([]Hit, 0, len(chunks))
	for _, c := range chunks {
		hits = append(hits, Hit{
			Locator: c.Locator,
			Title:   c.Title,
			Chunk:   c.Index,
			Text:    c.Text,
			Score:   cosine(qv[0], c.Vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Ask answers question from the k most relevant chunks using the configured LLM.
func (ix *Index) Ask(ctx context.Context, question string, k int) (*Answer, error) {
	if !engine.LLMEnabled() {
		return nil, engine.ErrLLMDisabled
	}
	hits, err := ix.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	ans := &Answer{Question: question, Sources: hits}
	if len(hits) == 0 {
		ans.Answer = "The knowledge base is empty."
		return ans, nil
	}

	results := make([]engine.SearchResult, len(hits))
	for i, h := range hits {
		title := h.Title
		if title == "" {
			title = h.Locator
		}
		results[i] = engine.SearchResult{Title: title, URL: h.Locator, Content: h.Text, Score: h.Score}
	}
	out, err := engine.AnswerFromSources(ctx, question, results, 2000)
	if err != nil {
		return nil, fmt.Errorf("answer: %w", err)
	}
	ans.Answer = out.Answer
	ans.Facts = out.Facts
	return ans, nil
}

// Documents lists everything that has been ingested.
func (ix *Index) Documents(ctx context.Context) ([]Document, error) {
	return ix.store.Documents(ctx)
}

// Close releases the underlying store.
func (ix *Index) Close() error { return ix.store.Close() }
