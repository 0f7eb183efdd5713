package researchserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_research/internal/aggregate"
	"github.com/anatolykoptev/go_research/internal/kb"
)

// Aggregator runs the combined web + video ingestion for one query.
type Aggregator interface {
	Run(ctx context.Context, query string) aggregate.Summary
}

// Retriever answers queries from the retrieval index.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]kb.Hit, error)
	Ask(ctx context.Context, question string, k int) (*kb.Answer, error)
	Documents(ctx context.Context) ([]kb.Document, error)
}

// Services are the collaborators the tools delegate to.
type Services struct {
	Aggregator  Aggregator
	Videos      aggregate.VideoSearcher
	Transcripts aggregate.TranscriptExtractor
	Index       Retriever

	// Defaults for youtube_search when the caller leaves a field empty.
	MaxVideos int
	DaysBack  int
}

// RegisterTools registers the research tools on the given MCP server:
// search_and_embed, youtube_search, youtube_transcript, kb_search, kb_ask,
// kb_documents.
// Returns the number of tools registered.
func RegisterTools(server *mcp.Server, svc Services) int {
	n := 0
	if svc.Aggregator != nil {
		registerSearchAndEmbed(server, svc.Aggregator)
		n++
	}
	if svc.Videos != nil {
		registerYouTubeSearch(server, svc.Videos, svc.MaxVideos, svc.DaysBack)
		n++
	}
	if svc.Transcripts != nil {
		registerYouTubeTranscript(server, svc.Transcripts)
		n++
	}
	if svc.Index != nil {
		registerKBSearch(server, svc.Index)
		registerKBAsk(server, svc.Index)
		registerKBDocuments(server, svc.Index)
		n += 3
	}
	return n
}
