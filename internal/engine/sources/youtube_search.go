package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_research/internal/engine"
)

// YouTube search — Data API v3 search.list + videos.list, duration filter,
// relevance scoring.

const (
	ytDataAPIBase      = "https://www.googleapis.com/youtube/v3"
	ytWatchURL         = "https://www.youtube.com/watch?v="
	ytMinDuration      = 300 // seconds; shorter candidates are dropped
	ytPreviewRunes     = 500
	ytMaxResultsCap    = 50
	ytNoVideosMessage  = "No videos found for this topic"
	ytSearchErrPrefix  = "Error searching YouTube: "
	ytDefaultMaxResult = 10
)

// VideoRecord is one ranked video returned by Search.
type VideoRecord struct {
	VideoID            string         `json:"video_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	DescriptionPreview string         `json:"description_preview"`
	PublishedAt        string         `json:"published_at"`
	ChannelID          string         `json:"channel_id"`
	ChannelTitle       string         `json:"channel_title"`
	DurationSeconds    int            `json:"duration_seconds"`
	DurationFormatted  string         `json:"duration_formatted"`
	ViewCount          int64          `json:"view_count"`
	LikeCount          int64          `json:"like_count"`
	CommentCount       int64          `json:"comment_count"`
	ThumbnailURL       string         `json:"thumbnail_url"`
	VideoURL           string         `json:"video_url"`
	RelevanceScore     float64        `json:"relevance_score"`
	ScoreBreakdown     ScoreBreakdown `json:"score_breakdown"`
}

// VideoSearchResponse is the search envelope. Callers check Error before
// reading Videos.
type VideoSearchResponse struct {
	SearchQuery string        `json:"search_query"`
	TotalFound  int           `json:"total_found"`
	SearchDate  string        `json:"search_date"`
	Videos      []VideoRecord `json:"videos"`
	Message     string        `json:"message,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// --- YouTube Data API v3 types ---

type ytDataSearchResp struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type ytVideosResp struct {
	Items []ytVideoItem `json:"items"`
}

type ytVideoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		PublishedAt  string `json:"publishedAt"`
		ChannelID    string `json:"channelId"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   map[string]struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	// The API encodes counters as decimal strings.
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

// YouTubeClient queries the YouTube Data API v3.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// YouTubeOption configures a YouTubeClient.
type YouTubeOption func(*YouTubeClient)

// WithYouTubeBaseURL overrides the Data API base URL. Empty keeps the default.
func WithYouTubeBaseURL(u string) YouTubeOption {
	return func(c *YouTubeClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithYouTubeHTTPClient sets the HTTP client.
func WithYouTubeHTTPClient(hc *http.Client) YouTubeOption {
	return func(c *YouTubeClient) { c.client = hc }
}

// WithYouTubeRate paces Data API requests to perSec (burst 1). 0 disables pacing.
func WithYouTubeRate(perSec float64) YouTubeOption {
	return func(c *YouTubeClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithYouTubeClock replaces the wall clock used for cutoffs and recency.
func WithYouTubeClock(now func() time.Time) YouTubeOption {
	return func(c *YouTubeClient) { c.now = now }
}

// NewYouTubeClient creates a Data API client. An empty key is a configuration
// fault.
func NewYouTubeClient(apiKey string, opts ...YouTubeOption) (*YouTubeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube: %w: YOUTUBE_API_KEY", engine.ErrMissingCredential)
	}
	c := &YouTubeClient{
		apiKey:  apiKey,
		baseURL: ytDataAPIBase,
		client:  engine.HTTPClient(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Search finds videos on topic published in the last daysBack days, drops
// anything shorter than five minutes and ranks the rest by relevance.
// Backend faults are reported in the response Error field, never returned.
func (c *YouTubeClient) Search(ctx context.Context, topic string, maxResults, daysBack int) VideoSearchResponse {
	engine.IncrYouTubeSearch()
	now := c.now()
	resp := VideoSearchResponse{
		SearchQuery: topic,
		SearchDate:  now.Format(time.RFC3339),
		Videos:      []VideoRecord{},
	}

	videos, err := c.search(ctx, topic, maxResults, daysBack, now)
	if err != nil {
		engine.IncrYouTubeSearchError()
		slog.Warn("youtube: search failed", slog.String("topic", topic), slog.Any("error", err))
		resp.Error = ytSearchErrPrefix + err.Error()
		return resp
	}
	if videos == nil {
		resp.Message = ytNoVideosMessage
		return resp
	}
	resp.Videos = videos
	resp.TotalFound = len(videos)
	return resp
}

// search returns nil (not empty) when search.list had no candidates.
func (c *YouTubeClient) search(ctx context.Context, topic string, maxResults, daysBack int, now time.Time) ([]VideoRecord, error) {
	if maxResults <= 0 {
		maxResults = ytDefaultMaxResult
	}
	maxResults = min(maxResults, ytMaxResultsCap)
	daysBack = max(daysBack, 0)

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", topic)
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("publishedAfter", now.UTC().AddDate(0, 0, -daysBack).Format(time.RFC3339))
	params.Set("videoDuration", "medium")
	params.Set("videoDefinition", "high")
	params.Set("safeSearch", "moderate")

	var sr ytDataSearchResp
	if err := c.get(ctx, "/search", params, &sr); err != nil {
		return nil, fmt.Errorf("search.list: %w", err)
	}

	ids := make([]string, 0, len(sr.Items))
	for _, item := range sr.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	params = url.Values{}
	params.Set("part", "snippet,statistics,contentDetails")
	params.Set("id", strings.Join(ids, ","))

	var vr ytVideosResp
	if err := c.get(ctx, "/videos", params, &vr); err != nil {
		return nil, fmt.Errorf("videos.list: %w", err)
	}

	videos := make([]VideoRecord, 0, len(vr.Items))
	for _, item := range vr.Items {
		duration := ParseDuration(item.ContentDetails.Duration)
		if duration < ytMinDuration {
			continue
		}
		videos = append(videos, buildVideoRecord(item, duration, topic, now))
	}

	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].RelevanceScore > videos[j].RelevanceScore
	})
	return videos, nil
}

func buildVideoRecord(item ytVideoItem, duration int, topic string, now time.Time) VideoRecord {
	v := VideoRecord{
		VideoID:           item.ID,
		Title:             item.Snippet.Title,
		Description:       item.Snippet.Description,
		PublishedAt:       item.Snippet.PublishedAt,
		ChannelID:         item.Snippet.ChannelID,
		ChannelTitle:      item.Snippet.ChannelTitle,
		DurationSeconds:   duration,
		DurationFormatted: FormatDuration(duration),
		ViewCount:         parseCount(item.Statistics.ViewCount),
		LikeCount:         parseCount(item.Statistics.LikeCount),
		CommentCount:      parseCount(item.Statistics.CommentCount),
		ThumbnailURL:      item.Snippet.Thumbnails["high"].URL,
		VideoURL:          ytWatchURL + item.ID,
	}
	v.DescriptionPreview = descriptionPreview(v.Description)
	v.ScoreBreakdown = ScoreVideo(ScoreInput{
		Title:           v.Title,
		ViewCount:       v.ViewCount,
		LikeCount:       v.LikeCount,
		CommentCount:    v.CommentCount,
		DurationSeconds: v.DurationSeconds,
		PublishedAt:     v.PublishedAt,
	}, topic, now)
	v.RelevanceScore = v.ScoreBreakdown.Total()
	return v
}

func descriptionPreview(desc string) string {
	if len([]rune(desc)) <= ytPreviewRunes {
		return desc
	}
	return engine.TruncateRunes(desc, ytPreviewRunes, "") + "..."
}

// parseCount reads a string counter; missing or malformed values are 0.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (c *YouTubeClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	params.Set("key", c.apiKey)
	apiURL := c.baseURL + path + "?" + params.Encode()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		req.Header.Set("Accept", "application/json")
		return c.client.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("youtube data API %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode youtube data API: %w", err)
	}
	return nil
}
