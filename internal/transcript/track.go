package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTranscriptsDisabled means the video exposes no caption tracks at all.
	ErrTranscriptsDisabled = errors.New("transcripts disabled for video")
	// ErrNoTranscriptFound means tracks exist but none match the requested languages.
	ErrNoTranscriptFound = errors.New("no transcript found")
)

// Track is one caption track in a video's catalog.
type Track struct {
	VideoID      string `json:"video_id"`
	LanguageCode string `json:"language_code"`
	Language     string `json:"language,omitempty"`
	IsGenerated  bool   `json:"is_generated"`
	BaseURL      string `json:"-"`
}

// Segment is one timed caption line.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Backend lists and fetches caption tracks.
type Backend interface {
	ListTracks(ctx context.Context, videoID string) ([]Track, error)
	FetchTrack(ctx context.Context, track Track) ([]Segment, error)
}

// FindTranscript returns the first track matching langs in order, preferring
// a human-authored track over a generated one for the same language.
func FindTranscript(tracks []Track, langs ...string) (Track, error) {
	for _, lang := range langs {
		if t, ok := findTrack(tracks, lang, false); ok {
			return t, nil
		}
		if t, ok := findTrack(tracks, lang, true); ok {
			return t, nil
		}
	}
	return Track{}, noTranscriptErr(langs)
}

// FindGeneratedTranscript returns the first auto-generated track matching langs in order.
func FindGeneratedTranscript(tracks []Track, langs ...string) (Track, error) {
	for _, lang := range langs {
		if t, ok := findTrack(tracks, lang, true); ok {
			return t, nil
		}
	}
	return Track{}, noTranscriptErr(langs)
}

func findTrack(tracks []Track, lang string, generated bool) (Track, bool) {
	for _, t := range tracks {
		if t.LanguageCode == lang && t.IsGenerated == generated {
			return t, true
		}
	}
	return Track{}, false
}

func noTranscriptErr(langs []string) error {
	return fmt.Errorf("%w for languages [%s]", ErrNoTranscriptFound, strings.Join(langs, ", "))
}

// JoinSegments concatenates segment texts with single spaces.
func JoinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
