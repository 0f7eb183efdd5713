package kb

import (
	"context"
	"time"
)

// Document is one ingested locator.
type Document struct {
	Locator     string      `json:"locator"`
	ContentType ContentType `json:"content_type"`
	Title       string      `json:"title,omitempty"`
	Chunks      int         `json:"chunks"`
	AddedAt     time.Time   `json:"added_at"`
}

// StoredChunk is one embedded window of a document.
type StoredChunk struct {
	Locator string
	Title   string
	Index   int
	Text    string
	Vector  []float32
}

// Store persists documents and their chunks. Replace swaps all chunks of a
// locator atomically, so re-adding a locator never duplicates content.
type Store interface {
	Replace(ctx context.Context, doc Document, chunks []StoredChunk) error
	Chunks(ctx context.Context) ([]StoredChunk, error)
	Documents(ctx context.Context) ([]Document, error)
	Close() error
}
