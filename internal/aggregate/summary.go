package aggregate

import (
	"github.com/anatolykoptev/go_research/internal/engine/sources"
	"github.com/anatolykoptev/go_research/internal/transcript"
)

// Summary is the result of one aggregation call.
type Summary struct {
	Query   string         `json:"query"`
	Web     WebOutcome     `json:"web"`
	YouTube YouTubeOutcome `json:"youtube"`
	Counts  Counts         `json:"summary"`
}

// EmbeddedURL is a web result that reached the index.
type EmbeddedURL struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// FailedURL is a web result the index rejected.
type FailedURL struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Error string `json:"error"`
}

type WebOutcome struct {
	Embedded      []EmbeddedURL `json:"embedded"`
	Failed        []FailedURL   `json:"failed"`
	EmbeddedCount int           `json:"embedded_count"`
	FailedCount   int           `json:"failed_count"`
	Error         string        `json:"error,omitempty"`
}

// TranscriptStatus is the per-video line of the video branch.
type TranscriptStatus struct {
	VideoID   string                `json:"video_id"`
	Status    transcript.Status     `json:"status"`
	Source    transcript.SourceType `json:"source,omitempty"`
	WordCount int                   `json:"word_count"`
	Error     string                `json:"error,omitempty"`
}

type YouTubeOutcome struct {
	Videos                []sources.VideoRecord `json:"videos"`
	Transcripts           []TranscriptStatus    `json:"transcripts"`
	TranscriptAdded       bool                  `json:"rag_transcript_added"`
	TranscriptIngestError string                `json:"transcript_ingest_error,omitempty"`
	Error                 string                `json:"error,omitempty"`
}

// Counts is the top-level tally.
type Counts struct {
	WebEmbedded   int `json:"web_embedded"`
	WebFailed     int `json:"web_failed"`
	YTFound       int `json:"yt_found"`
	YTTranscribed int `json:"yt_transcribed"`
}
