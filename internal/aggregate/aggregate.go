// Package aggregate fuses a web search and a YouTube search for one query
// into the retrieval index and reports what happened to every unit of work.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_research/internal/engine"
	"github.com/anatolykoptev/go_research/internal/engine/sources"
	"github.com/anatolykoptev/go_research/internal/kb"
	"github.com/anatolykoptev/go_research/internal/transcript"
)

// ErrMissingDependency is returned by New when a collaborator is nil.
var ErrMissingDependency = errors.New("missing dependency")

const untitled = "Untitled"

// WebSearcher is the web search backend (Tavily or SearXNG).
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]engine.SearchResult, error)
}

// VideoSearcher is the ranked YouTube search.
type VideoSearcher interface {
	Search(ctx context.Context, topic string, maxResults, daysBack int) sources.VideoSearchResponse
}

// TranscriptExtractor acquires and persists one video's transcript.
type TranscriptExtractor interface {
	Extract(ctx context.Context, req transcript.Request) (transcript.Result, error)
	Path(query string) string
}

// Sink ingests a locator into the retrieval index.
type Sink interface {
	Add(ctx context.Context, locator string, ct kb.ContentType) error
}

// Deps are the collaborators of an Aggregator. All are required.
type Deps struct {
	Web        WebSearcher
	Videos     VideoSearcher
	Transcript TranscriptExtractor
	Sink       Sink
}

// Options tune the video branch. A zero MaxVideos or Language selects the
// default. DaysBack 0 is honoured (videos published from now on only), so
// only a negative DaysBack selects the default; start from DefaultOptions
// to get it.
type Options struct {
	MaxVideos int    // default 5
	DaysBack  int    // default 90 when negative
	Language  string // default "en"
}

// DefaultOptions returns the video-branch defaults.
func DefaultOptions() Options {
	return Options{MaxVideos: 5, DaysBack: 90, Language: "en"}
}

// Aggregator runs one aggregation per call. Safe for concurrent use when its
// collaborators are.
type Aggregator struct {
	deps Deps
	opts Options
}

// New validates deps and returns an Aggregator.
func New(deps Deps, opts Options) (*Aggregator, error) {
	switch {
	case deps.Web == nil:
		return nil, fmt.Errorf("aggregate: %w: web searcher", ErrMissingDependency)
	case deps.Videos == nil:
		return nil, fmt.Errorf("aggregate: %w: video searcher", ErrMissingDependency)
	case deps.Transcript == nil:
		return nil, fmt.Errorf("aggregate: %w: transcript extractor", ErrMissingDependency)
	case deps.Sink == nil:
		return nil, fmt.Errorf("aggregate: %w: ingestion sink", ErrMissingDependency)
	}
	if opts.MaxVideos <= 0 {
		opts.MaxVideos = 5
	}
	if opts.DaysBack < 0 {
		opts.DaysBack = 90
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &Aggregator{deps: deps, opts: opts}, nil
}

// Run executes the web branch, then the video branch, then ingests the
// query's transcript file. Partial failures are reported, never returned.
func (a *Aggregator) Run(ctx context.Context, query string) (out Summary) {
	_ = engine.TrackOperation(ctx, "aggregate:"+query, func(ctx context.Context) error {
		out = a.run(ctx, query)
		return nil
	})
	return out
}

func (a *Aggregator) run(ctx context.Context, query string) Summary {
	out := Summary{Query: query}
	out.Web = a.webBranch(ctx, query)
	out.YouTube = a.videoBranch(ctx, query)

	out.Counts = Counts{
		WebEmbedded: len(out.Web.Embedded),
		WebFailed:   len(out.Web.Failed),
		YTFound:     len(out.YouTube.Videos),
	}
	for _, t := range out.YouTube.Transcripts {
		if t.Status == transcript.StatusSuccess {
			out.Counts.YTTranscribed++
		}
	}
	return out
}

func (a *Aggregator) webBranch(ctx context.Context, query string) WebOutcome {
	out := WebOutcome{Embedded: []EmbeddedURL{}, Failed: []FailedURL{}}

	results, err := a.deps.Web.Search(ctx, query)
	if err != nil {
		slog.Warn("aggregate: web search failed", slog.String("query", query), slog.Any("error", err))
		out.Error = err.Error()
		return out
	}

	for _, r := range results {
		if r.URL == "" {
			continue
		}
		title := r.Title
		if title == "" {
			title = untitled
		}
		if err := a.deps.Sink.Add(ctx, r.URL, kb.ContentWebPage); err != nil {
			out.Failed = append(out.Failed, FailedURL{URL: r.URL, Title: title, Error: err.Error()})
			continue
		}
		out.Embedded = append(out.Embedded, EmbeddedURL{URL: r.URL, Title: title})
	}
	out.EmbeddedCount = len(out.Embedded)
	out.FailedCount = len(out.Failed)
	return out
}

func (a *Aggregator) videoBranch(ctx context.Context, query string) YouTubeOutcome {
	out := YouTubeOutcome{Videos: []sources.VideoRecord{}, Transcripts: []TranscriptStatus{}}

	resp := a.deps.Videos.Search(ctx, query, a.opts.MaxVideos, a.opts.DaysBack)
	if resp.Error != "" {
		slog.Warn("aggregate: video search failed", slog.String("query", query), slog.String("error", resp.Error))
		out.Error = resp.Error
		return out
	}
	if resp.Videos != nil {
		out.Videos = resp.Videos
	}

	persisted := false
	for _, v := range out.Videos {
		res, err := a.deps.Transcript.Extract(ctx, transcript.Request{
			VideoID:     v.VideoID,
			Description: v.Description,
			Language:    a.opts.Language,
			Query:       query,
		})
		if err != nil {
			slog.Warn("aggregate: transcript failed", slog.String("video_id", v.VideoID), slog.Any("error", err))
			out.Transcripts = append(out.Transcripts, TranscriptStatus{
				VideoID: v.VideoID,
				Status:  transcript.StatusError,
				Error:   err.Error(),
			})
			continue
		}
		persisted = true
		out.Transcripts = append(out.Transcripts, TranscriptStatus{
			VideoID:   v.VideoID,
			Status:    res.Status,
			Source:    res.SourceType,
			WordCount: res.WordCount,
		})
	}

	// Nothing was appended for this query, so there is no file to ingest.
	if !persisted {
		return out
	}
	path := a.deps.Transcript.Path(query)
	if err := a.deps.Sink.Add(ctx, path, kb.ContentText); err != nil {
		slog.Warn("aggregate: transcript ingest failed", slog.String("path", path), slog.Any("error", err))
		out.TranscriptIngestError = err.Error()
		return out
	}
	out.TranscriptAdded = true
	return out
}
