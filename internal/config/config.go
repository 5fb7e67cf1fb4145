package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	StaticDir     string
	LogLevel      slog.Level
	// Upstream workflow API
	DifyBaseURL     string
	DifyAPIKey      string
	DifyAPIKeyParam string
	DifyAppID       string
	UpstreamTimeout time.Duration
	// State storage
	StoreDriver string
	RedisURL    string
	StateTable  string
	StateTTL    time.Duration
}

// Load reads .env (when present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	return Config{
		Port:            get("PORT", "3001"),
		AllowedOrigin:   get("CORS_ORIGIN", "http://localhost:5173"),
		StaticDir:       get("STATIC_DIR", ""),
		LogLevel:        parseLevel(get("LOG_LEVEL", "info")),
		DifyBaseURL:     get("DIFY_BASE_URL", "https://api.dify.ai"),
		DifyAPIKey:      get("DIFY_API_KEY", ""),
		DifyAPIKeyParam: get("DIFY_API_KEY_PARAM", ""),
		DifyAppID:       get("DIFY_APP_ID", get("DIFY_WORKFLOW_ID", "")),
		UpstreamTimeout: parseDuration(get("UPSTREAM_TIMEOUT", ""), 30*time.Second),
		StoreDriver:     get("STORE_DRIVER", "memory"),
		RedisURL:        get("REDIS_URL", ""),
		StateTable:      get("STATE_TABLE", ""),
		StateTTL:        parseDuration(get("STATE_TTL", ""), 30*24*time.Hour),
	}
}

// UsesAWS reports whether any configured component talks to AWS.
func (c Config) UsesAWS() bool {
	return c.DifyAPIKeyParam != "" || strings.EqualFold(c.StoreDriver, "dynamodb")
}

func parseDuration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}
