// go_research — multi-source research MCP server.
//
// Exposes six MCP tools: search_and_embed, youtube_search, youtube_transcript,
// kb_search, kb_ask, kb_documents. Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_research/internal/aggregate"
	"github.com/anatolykoptev/go_research/internal/engine"
	"github.com/anatolykoptev/go_research/internal/engine/sources"
	"github.com/anatolykoptev/go_research/internal/kb"
	"github.com/anatolykoptev/go_research/internal/researchserver"
	"github.com/anatolykoptev/go_research/internal/transcript"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	c := initEngine()

	svc, closeFn, err := buildServices(context.Background(), c)
	if err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeFn()

	slog.Info("starting go_research",
		slog.String("port", mcpPort),
		slog.Bool("llm", engine.LLMEnabled()),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_research",
		Version: version,
	}, nil)

	n := researchserver.RegisterTools(server, svc)
	slog.Info("tools registered", slog.Int("count", n))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_research",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() engine.Config {
	c := engine.Config{
		SearxngURL:           env.Str("SEARXNG_URL", "http://127.0.0.1:8888"),
		TavilyAPIKey:         env.Str("TAVILY_API_KEY", ""),
		TavilyURL:            env.Str("TAVILY_URL", "https://api.tavily.com"),
		WebBackend:           strings.ToLower(env.Str("WEB_SEARCH_BACKEND", "")),
		WebMaxResults:        env.Int("WEB_MAX_RESULTS", 5),
		YouTubeAPIKey:        env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIBase:       env.Str("YOUTUBE_API_BASE", ""),
		YouTubeRate:          env.Float("YOUTUBE_RATE", 5),
		YTMaxResults:         env.Int("YT_MAX_RESULTS", 5),
		YTSearchMax:          env.Int("YT_SEARCH_MAX_RESULTS", 10),
		YTDaysBack:           env.Int("YT_DAYS_BACK", 90),
		YTLanguage:           env.Str("YT_LANGUAGE", "en"),
		TranscriptDir:        env.Str("TRANSCRIPT_DIR", transcript.DefaultDir),
		KBDBPath:             env.Str("KB_DB_PATH", "output/kb.db"),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		EmbedAPIBase:         env.Str("EMBED_API_BASE", ""),
		EmbedAPIKey:          env.Str("EMBED_API_KEY", ""),
		EmbedModel:           env.Str("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:             env.Int("EMBED_DIM", 0),
		ChunkWords:           env.Int("CHUNK_WORDS", 200),
		ChunkOverlap:         env.Int("CHUNK_OVERLAP", 40),
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.1),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 4096),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 10*time.Second),
		MaxIngestChars:       env.Int("MAX_INGEST_CHARS", 200000),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	} else {
		slog.Warn("LLM_API_KEY not set, kb_ask disabled")
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 15*time.Minute)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
	return c
}

// buildServices constructs every collaborator. Missing credentials are fatal.
func buildServices(ctx context.Context, c engine.Config) (researchserver.Services, func(), error) {
	var svc researchserver.Services
	noop := func() {}

	web, err := newWebSearcher(c)
	if err != nil {
		return svc, noop, err
	}

	yt, err := sources.NewYouTubeClient(c.YouTubeAPIKey,
		sources.WithYouTubeBaseURL(c.YouTubeAPIBase),
		sources.WithYouTubeRate(c.YouTubeRate),
	)
	if err != nil {
		return svc, noop, err
	}

	ex, err := transcript.NewExtractor(sources.NewCaptionClient("", ""), transcript.NewStore(c.TranscriptDir))
	if err != nil {
		return svc, noop, err
	}

	ix, err := newIndex(ctx, c)
	if err != nil {
		return svc, noop, err
	}

	agg, err := aggregate.New(aggregate.Deps{
		Web:        web,
		Videos:     yt,
		Transcript: ex,
		Sink:       ix,
	}, aggregate.Options{
		MaxVideos: c.YTMaxResults,
		DaysBack:  c.YTDaysBack,
		Language:  c.YTLanguage,
	})
	if err != nil {
		ix.Close()
		return svc, noop, err
	}

	svc = researchserver.Services{
		Aggregator:  agg,
		Videos:      yt,
		Transcripts: ex,
		Index:       ix,
		MaxVideos:   c.YTSearchMax,
		DaysBack:    c.YTDaysBack,
	}
	return svc, func() {
		if err := ix.Close(); err != nil {
			slog.Warn("kb close failed", slog.Any("error", err))
		}
	}, nil
}

func newWebSearcher(c engine.Config) (aggregate.WebSearcher, error) {
	backend := c.WebBackend
	if backend == "" {
		backend = "searxng"
		if c.TavilyAPIKey != "" {
			backend = "tavily"
		}
	}
	slog.Info("web search backend", slog.String("backend", backend))

	switch backend {
	case "tavily":
		return sources.NewTavily(c.TavilyAPIKey, c.TavilyURL, c.WebMaxResults)
	case "searxng":
		return engine.NewSearXNG(c.SearxngURL, c.WebMaxResults)
	case "direct":
		bc, err := newBrowserClient()
		if err != nil {
			return nil, err
		}
		return engine.NewDirectSearcher(bc, c.WebMaxResults)
	default:
		return nil, fmt.Errorf("unknown WEB_SEARCH_BACKEND %q (tavily, searxng, direct)", backend)
	}
}

func newBrowserClient() (*engine.BrowserClient, error) {
	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client init: %w", err)
	}
	return bc, nil
}

func newIndex(ctx context.Context, c engine.Config) (*kb.Index, error) {
	var store kb.Store
	if c.DatabaseURL != "" {
		pg, err := kb.OpenPostgres(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = pg
		slog.Info("kb store: postgres")
	} else {
		lite, err := kb.OpenSQLite(c.KBDBPath)
		if err != nil {
			return nil, err
		}
		store = lite
		slog.Info("kb store: sqlite", slog.String("path", c.KBDBPath))
	}

	var emb kb.Embedder
	if c.EmbedAPIBase != "" {
		httpEmb, err := kb.NewHTTPEmbedder(c.EmbedAPIBase, c.EmbedAPIKey, c.EmbedModel, c.EmbedDim)
		if err != nil {
			store.Close()
			return nil, err
		}
		emb = httpEmb
	} else {
		emb = kb.NewHashEmbedder(c.EmbedDim)
		slog.Info("EMBED_API_BASE not set, using hashing embedder", slog.Int("dim", emb.Dimension()))
	}

	ix, err := kb.NewIndex(store, emb,
		kb.WithChunking(kb.ChunkOptions{MaxWords: c.ChunkWords, OverlapWords: c.ChunkOverlap}),
		kb.WithMaxChars(c.MaxIngestChars),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return ix, nil
}
