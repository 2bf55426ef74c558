package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Lookup    LookupConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the per-lookup Chromium process.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in most containers).
	NoSandbox bool // default: true

	// Stealth injects the go-rod/stealth evasions before navigation.
	Stealth bool // default: false

	// BrowserBin overrides the Chromium binary path. When empty the path is
	// taken from PUPPETEER_EXECUTABLE_PATH / CHROME_BIN, then CacheDir, then
	// rod's own lookup.
	BrowserBin string

	// CacheDir is an install cache laid out as <version>/chrome-linux64/chrome.
	CacheDir string // default: "/opt/render/.cache/puppeteer/chrome"

	// BlockedResourceTypes lists resource types to abort.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// LookupConfig controls concurrency around browser sessions.
type LookupConfig struct {
	// MaxSessions caps concurrently running browser sessions.
	MaxSessions int // default: 2

	// QueueTimeout is how long a lookup may wait for a free session slot.
	QueueTimeout time.Duration // default: 60s

	// MaxBatch is the batch size ceiling. It can be lowered but never
	// raised above MaxBatchCeiling.
	MaxBatch int // default: 5
}

// MaxBatchCeiling is the largest batch any configuration may allow.
const MaxBatchCeiling = 5

// CacheConfig controls the lookup result cache.
type CacheConfig struct {
	// Backend selects the store: "memory" or "redis".
	Backend string // default: "memory"

	// RedisURL is used when Backend is "redis".
	RedisURL string // default: "redis://localhost:6379/0"

	// TTL is how long a successful result is served.
	TTL time.Duration // default: 1h
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication on /api routes.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per client.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("REGIONSCOPE_HOST", "0.0.0.0"),
			Port: envIntOr("PORT", 3000),
			Mode: envOr("REGIONSCOPE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("REGIONSCOPE_HEADLESS", true),
			NoSandbox:  envBoolOr("REGIONSCOPE_NO_SANDBOX", true),
			Stealth:    envBoolOr("REGIONSCOPE_STEALTH", false),
			BrowserBin: os.Getenv("REGIONSCOPE_BROWSER_BIN"),
			CacheDir:   envOr("REGIONSCOPE_BROWSER_CACHE_DIR", "/opt/render/.cache/puppeteer/chrome"),
			BlockedResourceTypes: envSliceOr("REGIONSCOPE_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Lookup: LookupConfig{
			MaxSessions:  envIntOr("REGIONSCOPE_MAX_SESSIONS", 2),
			QueueTimeout: envDurationOr("REGIONSCOPE_QUEUE_TIMEOUT", 60*time.Second),
			MaxBatch:     min(envIntOr("REGIONSCOPE_MAX_BATCH", MaxBatchCeiling), MaxBatchCeiling),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("REGIONSCOPE_AUTH_ENABLED", false),
			APIKeys: envSliceOr("REGIONSCOPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("REGIONSCOPE_RATE_RPS", 1.0),
			Burst:             envIntOr("REGIONSCOPE_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			Backend:  envOr("REGIONSCOPE_CACHE_BACKEND", "memory"),
			RedisURL: envOr("REDIS_URL", "redis://localhost:6379/0"),
			TTL:      envDurationOr("REGIONSCOPE_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("REGIONSCOPE_LOG_LEVEL", "info"),
			Format: envOr("REGIONSCOPE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
