package researchserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_research/internal/aggregate"
	"github.com/anatolykoptev/go_research/internal/engine"
	"github.com/anatolykoptev/go_research/internal/engine/sources"
	"github.com/anatolykoptev/go_research/internal/toolutil"
	"github.com/anatolykoptev/go_research/internal/transcript"
)

type YouTubeSearchInput struct {
	Topic      string `json:"topic" jsonschema:"Search topic"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Videos to return (default 10, max 50)"`
	DaysBack   int    `json:"days_back,omitempty" jsonschema:"Only videos published within this many days (default 90)"`
}

type YouTubeTranscriptInput struct {
	VideoID     string `json:"video_id" jsonschema:"YouTube video ID"`
	Description string `json:"description,omitempty" jsonschema:"Video description, saved when no transcript exists"`
	Language    string `json:"language,omitempty" jsonschema:"Preferred transcript language (default en)"`
	Topic       string `json:"topic,omitempty" jsonschema:"Transcript file to append to (default: default)"`
}

func registerYouTubeSearch(server *mcp.Server, videos aggregate.VideoSearcher, defMax, defDays int) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_search",
		Description: "Search YouTube for recent videos of at least five minutes on a topic. Results are ranked by a 0-100 relevance score (title match, views, engagement, duration, recency) with a per-factor breakdown.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input YouTubeSearchInput) (*mcp.CallToolResult, sources.VideoSearchResponse, error) {
		if err := toolutil.Required("topic", input.Topic); err != nil {
			return nil, sources.VideoSearchResponse{}, err
		}
		maxResults := toolutil.Bound(input.MaxResults, toolutil.Bound(defMax, 10, 50), 50)
		daysBack := toolutil.Bound(input.DaysBack, toolutil.Bound(defDays, 90, 0), 0)

		cacheKey := engine.CacheKey("youtube_search", input.Topic, fmt.Sprint(maxResults), fmt.Sprint(daysBack))
		if out, ok := engine.CacheLoadJSON[sources.VideoSearchResponse](ctx, cacheKey); ok {
			return nil, out, nil
		}

		out := videos.Search(ctx, input.Topic, maxResults, daysBack)
		if out.Error == "" {
			engine.CacheStoreJSON(ctx, cacheKey, out)
		}
		return nil, out, nil
	})
}

func registerYouTubeTranscript(server *mcp.Server, ex aggregate.TranscriptExtractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch a YouTube video's transcript (manual captions first, then auto-generated English, then the supplied description) and append it to the topic's transcript file. Returns the source used, word count and file path.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input YouTubeTranscriptInput) (*mcp.CallToolResult, transcript.Result, error) {
		if err := toolutil.Required("video_id", input.VideoID); err != nil {
			return nil, transcript.Result{}, err
		}
		res, err := ex.Extract(ctx, transcript.Request{
			VideoID:     input.VideoID,
			Description: input.Description,
			Language:    toolutil.NormLang(input.Language),
			Query:       input.Topic,
		})
		if err != nil {
			return nil, transcript.Result{}, fmt.Errorf("transcript %s: %w", input.VideoID, err)
		}
		return nil, res, nil
	})
}
