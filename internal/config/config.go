package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	WeatherAPIKey      string
	// Lang is passed to providers for localized descriptions.
	Lang        string
	HTTPTimeout time.Duration

	// HistoryDriver is one of sqlite, pgx, mysql or memory.
	HistoryDriver string
	HistoryDSN    string
	// HistoryBaseURL, when set, makes the UI talk to a remote history
	// service instead of the in-process one.
	HistoryBaseURL string
	HistoryMax     int
	BcryptCost     int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration

	ReplaceMarker bool
	TileProxy     bool
	StaticDir     string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.Lang = getenvDefault("WEATHER_LANG", "pl")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.HistoryDriver = strings.ToLower(getenvDefault("HISTORY_DB_DRIVER", "sqlite"))
	switch cfg.HistoryDriver {
	case "sqlite", "pgx", "mysql", "memory":
	default:
		return nil, fmt.Errorf("invalid HISTORY_DB_DRIVER %q", cfg.HistoryDriver)
	}
	cfg.HistoryDSN = getenvDefault("HISTORY_DB_DSN", "history.db")
	cfg.HistoryBaseURL = os.Getenv("HISTORY_BASE_URL")
	cfg.HistoryMax = getenvInt("HISTORY_MAX_ENTRIES", 0)
	cfg.BcryptCost = getenvInt("BCRYPT_COST", 0)

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "10m"); err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = os.Getenv("KAFKA_TOPIC")

	if cfg.SessionIdleTTL, err = getenvDuration("SESSION_IDLE_TTL", "30m"); err != nil {
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getenvDuration("SESSION_SWEEP_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	cfg.ReplaceMarker = getenvBool("MAP_REPLACE_MARKER", false)
	cfg.TileProxy = getenvBool("TILE_PROXY", false)
	cfg.StaticDir = os.Getenv("STATIC_DIR")

	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
