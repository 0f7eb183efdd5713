package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	SearxngURL    string
	TavilyAPIKey  string
	TavilyURL     string
	WebBackend    string // "tavily" (default when a key is set), "searxng" or "direct"
	WebMaxResults int

	YouTubeAPIKey  string
	YouTubeAPIBase string
	YouTubeRate    float64 // Data API requests per second, 0 = unlimited
	YTMaxResults   int     // videos per search_and_embed run
	YTSearchMax    int     // youtube_search default max_results
	YTDaysBack     int
	YTLanguage     string

	TranscriptDir string

	KBDBPath     string
	DatabaseURL  string // Postgres retrieval store; empty = SQLite at KBDBPath
	EmbedAPIBase string // OpenAI-compatible /embeddings endpoint; empty = hashing embedder
	EmbedAPIKey  string
	EmbedModel   string
	EmbedDim     int
	ChunkWords   int
	ChunkOverlap int

	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMClient          *llm.Client // nil = kb_ask disabled

	FetchTimeout   time.Duration
	MaxIngestChars int

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, kb).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	cfg = c
	Cfg = &cfg
}

// httpClient returns the configured client, falling back to a default one
// when Init has not been called (tests, library use).
func httpClient() *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return http.DefaultClient
}

func fetchTimeout() time.Duration {
	if cfg.FetchTimeout > 0 {
		return cfg.FetchTimeout
	}
	return 10 * time.Second
}

// HTTPClient is the shared client used by sources and the retrieval index.
func HTTPClient() *http.Client { return httpClient() }
