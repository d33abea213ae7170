package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/weather-map/internal/api/http"
	"github.com/i474232898/weather-map/internal/cache"
	"github.com/i474232898/weather-map/internal/config"
	"github.com/i474232898/weather-map/internal/events"
	"github.com/i474232898/weather-map/internal/history"
	"github.com/i474232898/weather-map/internal/mapview"
	"github.com/i474232898/weather-map/internal/scheduler"
	"github.com/i474232898/weather-map/internal/search"
	"github.com/i474232898/weather-map/internal/session"
	"github.com/i474232898/weather-map/internal/weather"
	"github.com/i474232898/weather-map/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// History storage and account service.
	store, err := openHistoryStore(cfg)
	if err != nil {
		logger.Error("failed to open history store", "driver", cfg.HistoryDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	historySvc := history.NewService(store, cfg.BcryptCost, logger)

	checks := map[string]httpapi.HealthCheck{}
	if p, ok := store.(interface{ Ping(context.Context) error }); ok {
		checks["history"] = p.Ping
	}

	// Optional reading cache.
	var readingCache weather.Cache
	if cfg.RedisAddr != "" {
		rc, err := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, logger)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", "error", err)
		} else {
			defer rc.Close()
			readingCache = rc
			checks["redis"] = rc.Ping
		}
	}

	// Providers with resilience (backoff + circuit breaker).
	var provs []weather.Provider
	provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, cfg.Lang, cfg.OpenWeatherBaseURL))
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, cfg.Lang))
	}
	weatherSvc := weather.NewService(provs, readingCache, cfg.Lang, logger)

	// Optional search event stream.
	var publisher search.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Warn("kafka unavailable, search events disabled", "error", err)
		} else {
			defer kp.Close()
			publisher = kp
		}
	}

	// The dashboard reaches history in-process unless a remote service is configured.
	var historyBackend search.HistoryBackend = historySvc
	if cfg.HistoryBaseURL != "" {
		historyBackend = history.NewClient(cfg.HistoryBaseURL, httpClient)
		logger.Info("using remote history service", "url", cfg.HistoryBaseURL)
	}

	tiles := mapview.TileSource{APIKey: cfg.OpenWeatherAPIKey}
	if cfg.TileProxy {
		tiles.ProxyPrefix = "/tiles"
	}
	markers := mapview.MarkersAccumulate
	if cfg.ReplaceMarker {
		markers = mapview.MarkersReplace
	}

	sessions := session.NewStore(session.Deps{
		Weather:   weatherSvc,
		History:   historyBackend,
		Publisher: publisher,
		Tiles:     tiles,
		Markers:   markers,
		Logger:    logger,
	})

	// Scheduler that evicts idle page sessions.
	sched := scheduler.New(sessions, cfg.SessionIdleTTL, cfg.SessionSweepInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.Deps{
		History:    historySvc,
		Sessions:   sessions,
		Tiles:      tiles,
		TileClient: httpapi.NewTileClient(cfg.HTTPTimeout),
		Checks:     checks,
		Logger:     logger,
		AccessLog:  true,
	})
	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// Start server with graceful shutdown
	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}

func newLogger(cfg *config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openHistoryStore(cfg *config.AppConfig) (history.Store, error) {
	if cfg.HistoryDriver == "memory" {
		return history.NewMemoryStore(cfg.HistoryMax), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s, err := history.OpenSQL(ctx, cfg.HistoryDriver, cfg.HistoryDSN)
	if err != nil {
		return nil, err
	}
	return s, nil
}
