package sources

import (
	"math"
	"strings"
	"time"
)

// Score term maxima.
const (
	maxTitleScore      = 40.0
	maxViewsScore      = 20.0
	maxEngagementScore = 20.0
	maxDurationScore   = 10.0
	maxRecencyScore    = 10.0
)

// ScoreBreakdown holds the individual relevance terms for one video.
type ScoreBreakdown struct {
	Title      float64 `json:"title"`
	Views      float64 `json:"views"`
	Engagement float64 `json:"engagement"`
	Duration   float64 `json:"duration"`
	Recency    float64 `json:"recency"`
}

// Total is the sum of all terms, always within [0, 100].
func (b ScoreBreakdown) Total() float64 {
	return b.Title + b.Views + b.Engagement + b.Duration + b.Recency
}

// ScoreInput is the subset of a video payload the scorer reads.
type ScoreInput struct {
	Title           string
	ViewCount       int64
	LikeCount       int64
	CommentCount    int64
	DurationSeconds int
	PublishedAt     string // RFC 3339
}

// ScoreVideo computes the relevance breakdown of one video for query.
func ScoreVideo(in ScoreInput, query string, now time.Time) ScoreBreakdown {
	var b ScoreBreakdown

	words := strings.Fields(strings.ToLower(query))
	if len(words) > 0 {
		title := strings.ToLower(in.Title)
		matched := 0
		for _, w := range words {
			if strings.Contains(title, w) {
				matched++
			}
		}
		b.Title = clamp(float64(matched)/float64(len(words))*maxTitleScore, maxTitleScore)
	}

	views := float64(in.ViewCount)
	if in.ViewCount > 10000 {
		b.Views = clamp(views/50000, maxViewsScore)
	}
	if in.ViewCount > 0 {
		ratio := float64(in.LikeCount+2*in.CommentCount) / views
		b.Engagement = clamp(ratio*1_000_000, maxEngagementScore)
	}

	switch d := in.DurationSeconds; {
	case d >= 600 && d <= 1800:
		b.Duration = 10
	case d >= 300 && d < 600:
		b.Duration = 7
	case d > 1800:
		b.Duration = 5
	}

	if published, err := time.Parse(time.RFC3339, in.PublishedAt); err == nil {
		b.Recency = clamp(RecencyBonus(published, now), maxRecencyScore)
	}
	return b
}

func clamp(v, maxV float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, maxV)
}
