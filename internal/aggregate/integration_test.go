package aggregate

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_research/internal/engine/sources"
	"github.com/anatolykoptev/go_research/internal/kb"
	"github.com/anatolykoptev/go_research/internal/transcript"
)

type captionStub struct{}

func (captionStub) ListTracks(_ context.Context, videoID string) ([]transcript.Track, error) {
	if videoID == "nocaps" {
		return nil, transcript.ErrTranscriptsDisabled
	}
	return []transcript.Track{{VideoID: videoID, LanguageCode: "en"}}, nil
}

func (captionStub) FetchTrack(_ context.Context, tr transcript.Track) ([]transcript.Segment, error) {
	return []transcript.Segment{
		{Text: "[Music] superconducting qubits are cooled"},
		{Text: "to millikelvin temperatures in a dilution refrigerator"},
	}, nil
}

// The real extractor and index, with only the network edges stubbed.
func TestRun_TranscriptsReachIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ex, err := transcript.NewExtractor(captionStub{}, transcript.NewStore(filepath.Join(dir, "transcriptions")))
	require.NoError(t, err)
	store, err := kb.OpenSQLite(filepath.Join(dir, "kb.db"))
	require.NoError(t, err)
	ix, err := kb.NewIndex(store, kb.NewHashEmbedder(0))
	require.NoError(t, err)
	defer ix.Close()

	vids := &fakeVideos{resp: sources.VideoSearchResponse{Videos: []sources.VideoRecord{
		{VideoID: "withcaps"},
		{VideoID: "nocaps", Description: "A lecture on trapped ion quantum computers."},
	}}}
	a, err := New(Deps{Web: &fakeWeb{}, Videos: vids, Transcript: ex, Sink: ix}, Options{})
	require.NoError(t, err)

	got := a.Run(ctx, "quantum hardware")
	assert.Equal(t, 2, got.Counts.YTTranscribed)
	assert.True(t, got.YouTube.TranscriptAdded)
	assert.Equal(t, transcript.SourceManual, got.YouTube.Transcripts[0].Source)
	assert.Equal(t, transcript.SourceDescription, got.YouTube.Transcripts[1].Source)

	hits, err := ix.Search(ctx, "dilution refrigerator", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ex.Path("quantum hardware"), hits[0].Locator)
	assert.Contains(t, hits[0].Text, "trapped ion")
}

// perVideoCaptions returns a long transcript for "first" and a short one
// carrying a unique term for every other video.
type perVideoCaptions struct{}

func (perVideoCaptions) ListTracks(_ context.Context, videoID string) ([]transcript.Track, error) {
	return []transcript.Track{{VideoID: videoID, LanguageCode: "en"}}, nil
}

func (perVideoCaptions) FetchTrack(_ context.Context, tr transcript.Track) ([]transcript.Segment, error) {
	if tr.VideoID == "first" {
		return []transcript.Segment{{Text: strings.Repeat("error correction overhead for logical qubits ", 100)}}, nil
	}
	return []transcript.Segment{{Text: "zzfreshterm appears only in the later video"}}, nil
}

func TestRun_RepeatedQueryIndexesNewestTranscript(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ex, err := transcript.NewExtractor(perVideoCaptions{}, transcript.NewStore(filepath.Join(dir, "transcriptions")))
	require.NoError(t, err)
	store, err := kb.OpenSQLite(filepath.Join(dir, "kb.db"))
	require.NoError(t, err)
	ix, err := kb.NewIndex(store, kb.NewHashEmbedder(0), kb.WithMaxChars(2000))
	require.NoError(t, err)
	defer ix.Close()

	vids := &fakeVideos{}
	a, err := New(Deps{Web: &fakeWeb{}, Videos: vids, Transcript: ex, Sink: ix}, Options{})
	require.NoError(t, err)

	vids.resp = sources.VideoSearchResponse{Videos: []sources.VideoRecord{{VideoID: "first"}}}
	first := a.Run(ctx, "quantum error correction")
	require.True(t, first.YouTube.TranscriptAdded)

	vids.resp = sources.VideoSearchResponse{Videos: []sources.VideoRecord{{VideoID: "second"}}}
	second := a.Run(ctx, "quantum error correction")
	require.True(t, second.YouTube.TranscriptAdded)

	hits, err := ix.Search(ctx, "zzfreshterm", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ex.Path("quantum error correction"), hits[0].Locator)
	assert.Contains(t, hits[0].Text, "zzfreshterm")
}
