package kb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a disposable database: KB_TEST_DATABASE_URL=postgres://...
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("KB_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("KB_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	doc := Document{Locator: "pg-test://" + time.Now().Format(time.RFC3339Nano), ContentType: ContentText, AddedAt: time.Now()}
	require.NoError(t, s.Replace(ctx, doc, []StoredChunk{{Index: 0, Text: "hello", Vector: []float32{0.5, 0.5}}}))

	chunks, err := s.Chunks(ctx)
	require.NoError(t, err)
	var found bool
	for _, c := range chunks {
		if c.Locator == doc.Locator {
			found = true
			assert.Equal(t, []float32{0.5, 0.5}, c.Vector)
		}
	}
	assert.True(t, found)
}
