package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "github.com/cybersmurf/mimm-music-search/internal/api/http"
	"github.com/cybersmurf/mimm-music-search/internal/app"
	"github.com/cybersmurf/mimm-music-search/internal/metrics"
	"github.com/cybersmurf/mimm-music-search/internal/providers/deezer"
	"github.com/cybersmurf/mimm-music-search/internal/providers/itunes"
	"github.com/cybersmurf/mimm-music-search/internal/providers/musicbrainz"
	"github.com/cybersmurf/mimm-music-search/internal/search"
	"github.com/cybersmurf/mimm-music-search/internal/store"
	"github.com/cybersmurf/mimm-music-search/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "music-search", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	logger.Info("configuration loaded",
		slog.String("service", "music-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("musicbrainzEndpoint", cfg.MusicBrainzEndpoint),
		slog.Duration("musicbrainzMinInterval", cfg.MusicBrainzMinInterval),
		slog.String("deezerEndpoint", cfg.DeezerEndpoint),
		slog.String("itunesEndpoint", cfg.ITunesEndpoint),
		slog.String("metadataDBPath", cfg.MetadataDBPath),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
	)

	musicbrainzClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	deezerClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	itunesClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}

	metadataStore, err := store.Open(cfg.MetadataDBPath)
	if err != nil {
		logger.Error("metadata store init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = metadataStore.Close() }()

	searchService := search.NewService([]search.Provider{
		musicbrainz.NewClient(musicbrainz.Config{
			Endpoint:        cfg.MusicBrainzEndpoint,
			CoverArtBaseURL: cfg.CoverArtBaseURL,
			UserAgent:       cfg.UserAgent,
			Client:          musicbrainzClient,
			Throttle:        musicbrainz.NewThrottle(cfg.MusicBrainzMinInterval),
		}),
		deezer.NewClient(deezer.Config{
			Endpoint: cfg.DeezerEndpoint,
			Client:   deezerClient,
		}),
		itunes.NewClient(itunes.Config{
			Endpoint: cfg.ITunesEndpoint,
			Client:   itunesClient,
		}),
	}, cfg.RequestTimeout, buildServiceOptions(cfg, logger, metadataStore)...)

	handler := apihttp.NewServer(searchService, apihttp.WithLogger(logger)).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	searchService.StartBackground(rootCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("music search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("music search service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildServiceOptions(cfg app.Config, logger *slog.Logger, metadataStore *store.Store) []search.ServiceOption {
	opts := []search.ServiceOption{
		search.WithMetadataStore(metadataStore),
	}

	if cfg.CacheDisabled {
		opts = append(opts, search.WithCacheDisabled(true))
		return opts
	}

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
		opts = append(opts, search.WithRedisCache(search.NewRedisCacheBackend(redisClient)))
	}

	return opts
}
