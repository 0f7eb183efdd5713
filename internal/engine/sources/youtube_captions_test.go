package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_research/internal/transcript"
)

const timedTextXML = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">Hello &amp;#39;world&amp;#39;</text>
<text start="2.6" dur="1.0">&lt;font color=&quot;#E5E5E5&quot;&gt;[Music]&lt;/font&gt;</text>
<text start="3.6" dur="1.4">  </text>
<text start="5" dur="2">second line</text>
</transcript>`

func playerJSON(baseURL string) string {
	return fmt.Sprintf(`{"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[`+
		`{"baseUrl":"%[1]s/timedtext?lang=de","languageCode":"de","name":{"simpleText":"German"}},`+
		`{"baseUrl":"%[1]s/timedtext?lang=en&kind=asr","languageCode":"en","kind":"asr","name":{"runs":[{"text":"English (auto-generated)"}]}},`+
		`{"baseUrl":"%[1]s/timedtext?lang=fr&exp=xpe","languageCode":"fr"}`+
		`]}}}`, baseURL)
}

func newCaptionServer(t *testing.T, watchBody func(base string) string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			fmt.Fprint(w, watchBody(srv.URL))
		case "/player":
			fmt.Fprint(w, playerJSON(srv.URL))
		case "/timedtext":
			fmt.Fprint(w, timedTextXML)
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

func TestCaptionClient_ListTracksFromWatchPage(t *testing.T) {
	srv := newCaptionServer(t, func(base string) string {
		return `<html><script>var ytInitialPlayerResponse = ` + playerJSON(base) + `;var meta = {};</script></html>`
	})
	defer srv.Close()

	c := NewCaptionClient(srv.URL, srv.URL+"/player")
	tracks, err := c.ListTracks(context.Background(), "vid12345678")
	require.NoError(t, err)
	require.Len(t, tracks, 2, "PoToken-only tracks are skipped")

	assert.Equal(t, "de", tracks[0].LanguageCode)
	assert.Equal(t, "German", tracks[0].Language)
	assert.False(t, tracks[0].IsGenerated)
	assert.Equal(t, "vid12345678", tracks[0].VideoID)

	assert.Equal(t, "en", tracks[1].LanguageCode)
	assert.Equal(t, "English (auto-generated)", tracks[1].Language)
	assert.True(t, tracks[1].IsGenerated)
}

func TestCaptionClient_FallsBackToPlayer(t *testing.T) {
	srv := newCaptionServer(t, func(string) string { return "<html>consent wall</html>" })
	defer srv.Close()

	c := NewCaptionClient(srv.URL, srv.URL+"/player")
	tracks, err := c.ListTracks(context.Background(), "vid")
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
}

func TestCaptionClient_TranscriptsDisabled(t *testing.T) {
	srv := newCaptionServer(t, func(string) string {
		return `<script>ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"}};</script>`
	})
	defer srv.Close()

	_, err := NewCaptionClient(srv.URL, srv.URL+"/player").ListTracks(context.Background(), "vid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, transcript.ErrTranscriptsDisabled))
}

func TestCaptionClient_FetchTrack(t *testing.T) {
	srv := newCaptionServer(t, func(string) string { return "" })
	defer srv.Close()

	c := NewCaptionClient(srv.URL, "")
	segs, err := c.FetchTrack(context.Background(), transcript.Track{BaseURL: srv.URL + "/timedtext?lang=en"})
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.Equal(t, "Hello 'world'", segs[0].Text)
	assert.Equal(t, 0.5, segs[0].Start)
	assert.Equal(t, 2.1, segs[0].Duration)
	assert.Equal(t, "[Music]", segs[1].Text)
	assert.Equal(t, "second line", segs[2].Text)
	assert.Equal(t, 5.0, segs[2].Start)
}

func TestCaptionClient_FetchTrackNoURL(t *testing.T) {
	_, err := NewCaptionClient("", "").FetchTrack(context.Background(), transcript.Track{})
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1};rest`, `{"a":1}`},
		{`{"a":{"b":"}"}} trailing`, `{"a":{"b":"}"}}`},
		{`not json`, ""},
		{`{"unterminated":`, ""},
		{`{"path":"C:\\"};var x = {}`, `{"path":"C:\\"}`},
		{`{"q":"say \"}\" now","n":2} tail`, `{"q":"say \"}\" now","n":2}`},
	}
	for _, tt := range tests {
		if got := string(extractJSON([]byte(tt.in))); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
