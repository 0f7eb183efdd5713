package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_research/internal/engine"
	"github.com/anatolykoptev/go_research/internal/transcript"
)

// CaptionClient lists and fetches YouTube caption tracks.
// Primary:  scrape watch page ytInitialPlayerResponse → captionTracks (works from any IP)
// Fallback: ANDROID Innertube /player → captionTracks
type CaptionClient struct {
	watchBase string
	playerURL string
	client    *http.Client
}

// NewCaptionClient creates a caption backend. Empty URLs select YouTube defaults.
func NewCaptionClient(watchBase, playerURL string) *CaptionClient {
	if watchBase == "" {
		watchBase = ytWatchBase
	}
	if playerURL == "" {
		playerURL = ytInnertubePlayer
	}
	return &CaptionClient{
		watchBase: strings.TrimRight(watchBase, "/"),
		playerURL: playerURL,
		client:    engine.HTTPClient(),
	}
}

var _ transcript.Backend = (*CaptionClient)(nil)

// ListTracks returns the caption catalog of videoID.
// A video without any captions yields transcript.ErrTranscriptsDisabled.
func (c *CaptionClient) ListTracks(ctx context.Context, videoID string) ([]transcript.Track, error) {
	engine.IncrYouTubeTranscript()

	player, err := c.playerFromWatchPage(ctx, videoID)
	if err != nil {
		slog.Debug("youtube: watch page scrape failed, trying player",
			slog.String("id", videoID), slog.Any("error", err))
		player, err = c.playerFromInnertube(ctx, videoID)
		if err != nil {
			return nil, err
		}
	}
	return tracksFromPlayer(videoID, player)
}

// FetchTrack downloads and parses the timedtext XML of a track.
func (c *CaptionClient) FetchTrack(ctx context.Context, track transcript.Track) ([]transcript.Segment, error) {
	if track.BaseURL == "" {
		return nil, errors.New("caption track has no URL")
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return c.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timedtext: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// parseTimedText converts timedtext XML into segments. Caption text is HTML
// escaped a second time inside the XML, so it is unescaped before tags are stripped.
func parseTimedText(body []byte) ([]transcript.Segment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}
	segs := make([]transcript.Segment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := engine.CleanHTML(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(line.Start, 64)
		dur, _ := strconv.ParseFloat(line.Dur, 64)
		segs = append(segs, transcript.Segment{Text: text, Start: start, Duration: dur})
	}
	return segs, nil
}

func tracksFromPlayer(videoID string, p *innertubePlayerResp) ([]transcript.Track, error) {
	if p.Captions == nil || len(p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		if p.PlayabilityStatus != nil && p.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("%w: %s", transcript.ErrTranscriptsDisabled, p.PlayabilityStatus.Reason)
		}
		return nil, transcript.ErrTranscriptsDisabled
	}
	raw := p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	tracks := make([]transcript.Track, 0, len(raw))
	for _, t := range raw {
		// Tracks with &exp=xpe need a browser PoToken and cannot be fetched server-side.
		if strings.Contains(t.BaseURL, "&exp=xpe") {
			continue
		}
		tracks = append(tracks, transcript.Track{
			VideoID:      videoID,
			LanguageCode: t.LanguageCode,
			Language:     t.displayName(),
			IsGenerated:  t.Kind == "asr",
			BaseURL:      t.BaseURL,
		})
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: all caption tracks require PoToken", transcript.ErrNoTranscriptFound)
	}
	return tracks, nil
}

// playerFromWatchPage scrapes the watch page HTML for ytInitialPlayerResponse.
func (c *CaptionClient) playerFromWatchPage(ctx context.Context, videoID string) (*innertubePlayerResp, error) {
	watchURL := c.watchBase + "/watch?v=" + videoID

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return c.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	idx := bytes.Index(body, []byte(ytPlayerRespMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytPlayerRespMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var player innertubePlayerResp
	if err := json.Unmarshal(jsonData, &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

// playerFromInnertube uses the ANDROID Innertube /player endpoint.
func (c *CaptionClient) playerFromInnertube(ctx context.Context, videoID string) (*innertubePlayerResp, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.playerURL+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return c.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("android innertube: status %d", resp.StatusCode)
	}

	var player innertubePlayerResp
	if err := json.NewDecoder(resp.Body).Decode(&player); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return &player, nil
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
		} else {
			switch c {
			case '"':
				inStr = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return b[:i+1]
				}
			}
		}
	}
	return nil
}
