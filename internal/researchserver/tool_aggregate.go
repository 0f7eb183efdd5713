package researchserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_research/internal/aggregate"
	"github.com/anatolykoptev/go_research/internal/toolutil"
)

type SearchAndEmbedInput struct {
	Query string `json:"query" jsonschema:"Research topic, e.g. quantum computing"`
}

func registerSearchAndEmbed(server *mcp.Server, agg Aggregator) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_and_embed",
		Description: "Research a topic: runs a web search and a YouTube search, ingests every web page and the collected video transcripts into the knowledge base, and returns what was embedded, what failed, and per-video transcript status. Follow up with kb_search or kb_ask.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SearchAndEmbedInput) (*mcp.CallToolResult, aggregate.Summary, error) {
		if err := toolutil.Required("query", input.Query); err != nil {
			return nil, aggregate.Summary{}, err
		}
		out := agg.Run(ctx, input.Query)
		slog.Info("search_and_embed done",
			slog.String("query", input.Query),
			slog.Int("web_embedded", out.Counts.WebEmbedded),
			slog.Int("web_failed", out.Counts.WebFailed),
			slog.Int("yt_found", out.Counts.YTFound),
			slog.Int("yt_transcribed", out.Counts.YTTranscribed),
		)
		return nil, out, nil
	})
}
