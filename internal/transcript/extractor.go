package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_research/internal/engine"
)

// SourceType classifies where persisted text came from.
type SourceType string

const (
	SourceManual        SourceType = "manual"
	SourceAutoGenerated SourceType = "auto-generated"
	SourceDescription   SourceType = "description-fallback"
	SourceError         SourceType = "error-fallback"
)

// Status is the terminal state of one extraction.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	// LanguageNone marks text that is not a real transcript.
	LanguageNone = "n/a"

	noContentPlaceholder = "(No transcript or description available)"
	defaultLanguage      = "en"
	defaultQuery         = "default"
)

// EnglishVariants are tried, in order, for a generated transcript when the
// requested language has none.
var EnglishVariants = []string{"en", "en-US", "en-GB", "en-CA", "en-AU"}

var errEmptyTranscript = errors.New("transcript is empty after cleanup")

// Request describes one extraction.
type Request struct {
	VideoID     string `json:"video_id"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"` // default "en"
	Query       string `json:"query,omitempty"`    // transcript file key, default "default"
}

// Result reports one extraction. Every call yields exactly one Result and one
// appended record.
type Result struct {
	VideoID    string     `json:"video_id"`
	Status     Status     `json:"status"`
	SourceType SourceType `json:"source_type"`
	Language   string     `json:"language"`
	WordCount  int        `json:"word_count"`
	SavedTo    string     `json:"saved_to"`
	Timestamp  string     `json:"timestamp"`
	Error      string     `json:"error,omitempty"`
}

// acquisition is the outcome of one successful step.
type acquisition struct {
	text     string
	source   SourceType
	language string
}

// attempt carries the per-call state shared by steps.
type attempt struct {
	req      Request
	tracks   []Track
	listErr  error
	listDone bool
}

type step struct {
	name string
	run  func(ctx context.Context, a *attempt) (acquisition, error)
}

// Extractor fetches transcripts through an ordered fallback chain and
// persists every attempt to a Store.
type Extractor struct {
	backend Backend
	store   *Store
	now     func() time.Time
	steps   []step
}

// NewExtractor wires an extractor. Both collaborators are required.
func NewExtractor(backend Backend, store *Store) (*Extractor, error) {
	if backend == nil {
		return nil, errors.New("transcript: backend is required")
	}
	if store == nil {
		return nil, errors.New("transcript: store is required")
	}
	e := &Extractor{backend: backend, store: store, now: time.Now}
	e.steps = []step{
		{name: "requested-language", run: e.requestedLanguage},
		{name: "english-generated", run: e.englishGenerated},
		{name: "description", run: e.description},
	}
	return e, nil
}

// Path returns the transcript file the extractor writes for query.
func (e *Extractor) Path(query string) string {
	return e.store.Path(withDefault(query, defaultQuery))
}

// Extract runs the fallback chain for one video. The returned error is
// non-nil only when not even the error annotation could be persisted.
func (e *Extractor) Extract(ctx context.Context, req Request) (Result, error) {
	req.Language = withDefault(req.Language, defaultLanguage)
	req.Query = withDefault(req.Query, defaultQuery)

	res, err := e.acquireAndSave(ctx, req)
	if err == nil {
		return res, nil
	}

	slog.Warn("transcript: attempt failed, saving error annotation",
		slog.String("video_id", req.VideoID), slog.Any("error", err))

	text := strings.TrimSpace(fmt.Sprintf("(Error occurred) %s\n\n%s", err, req.Description))
	now := e.now()
	res = Result{
		VideoID:    req.VideoID,
		Status:     StatusError,
		SourceType: SourceError,
		Language:   LanguageNone,
		WordCount:  WordCount(text),
		SavedTo:    e.store.Path(req.Query),
		Timestamp:  now.Format(time.RFC3339),
		Error:      err.Error(),
	}
	if _, saveErr := e.store.Append(req.Query, Record{
		VideoID:  req.VideoID,
		Language: LanguageNone,
		Source:   SourceError,
		SavedAt:  now,
		Text:     text,
	}); saveErr != nil {
		return res, fmt.Errorf("save error annotation for %s: %w", req.VideoID, saveErr)
	}
	return res, nil
}

// acquireAndSave walks the steps, persists the first acquisition and converts
// any panic into an error.
func (e *Extractor) acquireAndSave(ctx context.Context, req Request) (res Result, err error) {
	defer func() {
		if ex := recover(); ex != nil {
			if perr, ok := ex.(error); ok {
				err = fmt.Errorf("panic: %w", perr)
			} else {
				err = fmt.Errorf("panic: %v", ex)
			}
		}
	}()

	a := &attempt{req: req}
	var acq acquisition
	for _, s := range e.steps {
		got, stepErr := s.run(ctx, a)
		if stepErr == nil {
			acq = got
			break
		}
		slog.Debug("transcript: step failed",
			slog.String("video_id", req.VideoID), slog.String("step", s.name), slog.Any("error", stepErr))
	}
	if acq.source == SourceDescription {
		engine.IncrTranscriptFallback()
	}

	now := e.now()
	path, err := e.store.Append(req.Query, Record{
		VideoID:  req.VideoID,
		Language: acq.language,
		Source:   acq.source,
		SavedAt:  now,
		Text:     acq.text,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		VideoID:    req.VideoID,
		Status:     StatusSuccess,
		SourceType: acq.source,
		Language:   acq.language,
		WordCount:  WordCount(acq.text),
		SavedTo:    path,
		Timestamp:  now.Format(time.RFC3339),
	}, nil
}

func (e *Extractor) catalog(ctx context.Context, a *attempt) ([]Track, error) {
	if !a.listDone {
		a.tracks, a.listErr = e.backend.ListTracks(ctx, a.req.VideoID)
		a.listDone = true
	}
	return a.tracks, a.listErr
}

func (e *Extractor) requestedLanguage(ctx context.Context, a *attempt) (acquisition, error) {
	tracks, err := e.catalog(ctx, a)
	if err != nil {
		return acquisition{}, err
	}
	track, err := FindTranscript(tracks, a.req.Language)
	if err != nil {
		return acquisition{}, err
	}
	source := SourceManual
	if track.IsGenerated {
		source = SourceAutoGenerated
	}
	return e.fetch(ctx, track, source)
}

func (e *Extractor) englishGenerated(ctx context.Context, a *attempt) (acquisition, error) {
	tracks, err := e.catalog(ctx, a)
	if err != nil {
		return acquisition{}, err
	}
	track, err := FindGeneratedTranscript(tracks, EnglishVariants...)
	if err != nil {
		return acquisition{}, err
	}
	return e.fetch(ctx, track, SourceAutoGenerated)
}

func (e *Extractor) description(_ context.Context, a *attempt) (acquisition, error) {
	text := a.req.Description
	if text == "" {
		text = noContentPlaceholder
	}
	return acquisition{text: text, source: SourceDescription, language: LanguageNone}, nil
}

func (e *Extractor) fetch(ctx context.Context, track Track, source SourceType) (acquisition, error) {
	segs, err := e.backend.FetchTrack(ctx, track)
	if err != nil {
		return acquisition{}, err
	}
	text := Clean(JoinSegments(segs))
	if text == "" {
		return acquisition{}, errEmptyTranscript
	}
	return acquisition{text: text, source: source, language: track.LanguageCode}, nil
}

func withDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
