package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	WebSearchRequests         atomic.Int64
	WebSearchErrors           atomic.Int64
	YouTubeSearchRequests     atomic.Int64
	YouTubeSearchErrors       atomic.Int64
	YouTubeTranscriptRequests atomic.Int64
	TranscriptFallbacks       atomic.Int64
	FetchRequests             atomic.Int64
	FetchErrors               atomic.Int64
	IngestRequests            atomic.Int64
	IngestErrors              atomic.Int64
	EmbedCalls                atomic.Int64
	LLMCalls                  atomic.Int64
	LLMErrors                 atomic.Int64
}

var metricKeys = []string{
	"web_search_requests", "web_search_errors",
	"youtube_search_requests", "youtube_search_errors",
	"youtube_transcript_requests", "transcript_fallbacks",
	"fetch_requests", "fetch_errors",
	"ingest_requests", "ingest_errors",
	"embed_calls",
	"llm_calls", "llm_errors",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"web_search_requests":         metrics.WebSearchRequests.Load(),
		"web_search_errors":           metrics.WebSearchErrors.Load(),
		"youtube_search_requests":     metrics.YouTubeSearchRequests.Load(),
		"youtube_search_errors":       metrics.YouTubeSearchErrors.Load(),
		"youtube_transcript_requests": metrics.YouTubeTranscriptRequests.Load(),
		"transcript_fallbacks":        metrics.TranscriptFallbacks.Load(),
		"fetch_requests":              metrics.FetchRequests.Load(),
		"fetch_errors":                metrics.FetchErrors.Load(),
		"ingest_requests":             metrics.IngestRequests.Load(),
		"ingest_errors":               metrics.IngestErrors.Load(),
		"embed_calls":                 metrics.EmbedCalls.Load(),
		"llm_calls":                   metrics.LLMCalls.Load(),
		"llm_errors":                  metrics.LLMErrors.Load(),
		"cache_hits":                  hits,
		"cache_misses":                misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sub-packages.
func IncrWebSearch()          { metrics.WebSearchRequests.Add(1) }
func IncrWebSearchError()     { metrics.WebSearchErrors.Add(1) }
func IncrYouTubeSearch()      { metrics.YouTubeSearchRequests.Add(1) }
func IncrYouTubeSearchError() { metrics.YouTubeSearchErrors.Add(1) }
func IncrYouTubeTranscript()  { metrics.YouTubeTranscriptRequests.Add(1) }
func IncrTranscriptFallback() { metrics.TranscriptFallbacks.Add(1) }
func IncrIngest()             { metrics.IngestRequests.Add(1) }
func IncrIngestError()        { metrics.IngestErrors.Add(1) }
func IncrEmbedCalls()         { metrics.EmbedCalls.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 30*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
