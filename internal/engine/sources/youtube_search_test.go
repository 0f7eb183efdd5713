package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_research/internal/engine"
)

var searchNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

type fakeVideo struct {
	id, title, duration, published string
	views, likes, comments         string
	description                    string
}

func (v fakeVideo) json() string {
	stats := []string{}
	if v.views != "" {
		stats = append(stats, fmt.Sprintf(`"viewCount":%q`, v.views))
	}
	if v.likes != "" {
		stats = append(stats, fmt.Sprintf(`"likeCount":%q`, v.likes))
	}
	if v.comments != "" {
		stats = append(stats, fmt.Sprintf(`"commentCount":%q`, v.comments))
	}
	return fmt.Sprintf(`{"id":%q,"snippet":{"title":%q,"description":%q,"publishedAt":%q,"channelId":"UC1","channelTitle":"Chan","thumbnails":{"high":{"url":"https://i.ytimg.com/%s.jpg"}}},"statistics":{%s},"contentDetails":{"duration":%q}}`,
		v.id, v.title, v.description, v.published, v.id, strings.Join(stats, ","), v.duration)
}

func newYouTubeServer(t *testing.T, videos []fakeVideo, check func(path string, r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r.URL.Path, r)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			items := make([]string, 0, len(videos))
			for _, v := range videos {
				items = append(items, fmt.Sprintf(`{"id":{"kind":"youtube#video","videoId":%q}}`, v.id))
			}
			fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))
		case "/videos":
			items := make([]string, 0, len(videos))
			for _, v := range videos {
				items = append(items, v.json())
			}
			fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestYouTubeClient(t *testing.T, baseURL string) *YouTubeClient {
	t.Helper()
	c, err := NewYouTubeClient("test-key",
		WithYouTubeBaseURL(baseURL),
		WithYouTubeClock(func() time.Time { return searchNow }),
	)
	require.NoError(t, err)
	return c
}

func TestNewYouTubeClient_MissingKey(t *testing.T) {
	_, err := NewYouTubeClient("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrMissingCredential))
}

func TestYouTubeSearch_FiltersAndRanks(t *testing.T) {
	recent := searchNow.Add(-72 * time.Hour).Format(time.RFC3339)
	old := searchNow.AddDate(0, -2, 0).Format(time.RFC3339)
	videos := []fakeVideo{
		{id: "low", title: "Unrelated talk", duration: "PT12M", published: old, views: "500"},
		{id: "short", title: "Quantum computing in 60 seconds", duration: "PT4M59S", published: recent, views: "9000000", likes: "900000"},
		{id: "best", title: "Quantum computing explained", duration: "PT20M", published: recent, views: "200000", likes: "8000", comments: "500",
			description: strings.Repeat("q", 600)},
		{id: "long", title: "Quantum lecture", duration: "PT1H5M", published: old},
	}

	var searchParams, videoParams map[string]string
	srv := newYouTubeServer(t, videos, func(path string, r *http.Request) {
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		if path == "/search" {
			searchParams = q
		} else {
			videoParams = q
		}
	})
	defer srv.Close()

	resp := newTestYouTubeClient(t, srv.URL).Search(context.Background(), "quantum computing", 5, 90)
	require.Empty(t, resp.Error)

	assert.Equal(t, "video", searchParams["type"])
	assert.Equal(t, "relevance", searchParams["order"])
	assert.Equal(t, "5", searchParams["maxResults"])
	assert.Equal(t, "medium", searchParams["videoDuration"])
	assert.Equal(t, "high", searchParams["videoDefinition"])
	assert.Equal(t, "moderate", searchParams["safeSearch"])
	assert.Equal(t, "2025-12-31T12:00:00Z", searchParams["publishedAfter"])
	assert.Equal(t, "test-key", searchParams["key"])
	assert.Equal(t, "snippet,statistics,contentDetails", videoParams["part"])
	assert.Equal(t, "low,short,best,long", videoParams["id"])

	require.Len(t, resp.Videos, 3)
	assert.Equal(t, 3, resp.TotalFound)
	assert.Equal(t, "quantum computing", resp.SearchQuery)
	for _, v := range resp.Videos {
		assert.NotEqual(t, "short", v.VideoID, "videos under five minutes must be dropped")
		assert.GreaterOrEqual(t, v.DurationSeconds, 300)
	}
	for i := 1; i < len(resp.Videos); i++ {
		assert.GreaterOrEqual(t, resp.Videos[i-1].RelevanceScore, resp.Videos[i].RelevanceScore)
	}

	best := resp.Videos[0]
	assert.Equal(t, "best", best.VideoID)
	assert.Equal(t, "20:00", best.DurationFormatted)
	assert.Equal(t, "https://www.youtube.com/watch?v=best", best.VideoURL)
	assert.Equal(t, "https://i.ytimg.com/best.jpg", best.ThumbnailURL)
	assert.Equal(t, int64(200000), best.ViewCount)
	assert.Len(t, best.Description, 600)
	assert.Equal(t, strings.Repeat("q", 500)+"...", best.DescriptionPreview)
	assert.InDelta(t, best.ScoreBreakdown.Total(), best.RelevanceScore, 1e-9)

	long := resp.Videos[1]
	assert.Equal(t, "long", long.VideoID)
	assert.Equal(t, "1:05:00", long.DurationFormatted)
	assert.Equal(t, int64(0), long.ViewCount)
	assert.Equal(t, int64(0), long.CommentCount)
}

func TestYouTubeSearch_StableTies(t *testing.T) {
	pub := searchNow.AddDate(-1, 0, 0).Format(time.RFC3339)
	videos := []fakeVideo{
		{id: "a", title: "nothing", duration: "PT15M", published: pub},
		{id: "b", title: "nothing", duration: "PT15M", published: pub},
		{id: "c", title: "nothing", duration: "PT15M", published: pub},
	}
	srv := newYouTubeServer(t, videos, nil)
	defer srv.Close()

	resp := newTestYouTubeClient(t, srv.URL).Search(context.Background(), "zzz", 10, 30)
	require.Empty(t, resp.Error)
	require.Len(t, resp.Videos, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{resp.Videos[0].VideoID, resp.Videos[1].VideoID, resp.Videos[2].VideoID})
}

func TestYouTubeSearch_NoMatches(t *testing.T) {
	srv := newYouTubeServer(t, nil, func(path string, r *http.Request) {
		if path == "/videos" {
			t.Error("videos.list must not be called without candidates")
		}
	})
	defer srv.Close()

	resp := newTestYouTubeClient(t, srv.URL).Search(context.Background(), "nothing here", 5, 90)
	assert.Empty(t, resp.Error)
	assert.Empty(t, resp.Videos)
	assert.NotNil(t, resp.Videos)
	assert.Equal(t, 0, resp.TotalFound)
	assert.Equal(t, ytNoVideosMessage, resp.Message)
}

func TestYouTubeSearch_ClampsMaxResults(t *testing.T) {
	var got []string
	srv := newYouTubeServer(t, nil, func(path string, r *http.Request) {
		got = append(got, r.URL.Query().Get("maxResults"))
	})
	defer srv.Close()

	c := newTestYouTubeClient(t, srv.URL)
	c.Search(context.Background(), "x", 500, 1)
	c.Search(context.Background(), "x", 0, 1)
	assert.Equal(t, []string{"50", "10"}, got)
}

func TestYouTubeSearch_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"keyInvalid"}}`)
	}))
	defer srv.Close()

	resp := newTestYouTubeClient(t, srv.URL).Search(context.Background(), "quantum", 5, 90)
	require.NotEmpty(t, resp.Error)
	assert.True(t, strings.HasPrefix(resp.Error, "Error searching YouTube: "))
	assert.Contains(t, resp.Error, "400")
	assert.Empty(t, resp.Videos)
	assert.Equal(t, "quantum", resp.SearchQuery)
}

func TestYouTubeSearch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [`)
	}))
	defer srv.Close()

	resp := newTestYouTubeClient(t, srv.URL).Search(context.Background(), "quantum", 5, 90)
	assert.NotEmpty(t, resp.Error)
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, int64(0), parseCount(""))
	assert.Equal(t, int64(0), parseCount("abc"))
	assert.Equal(t, int64(0), parseCount("-5"))
	assert.Equal(t, int64(12345), parseCount("12345"))
}
