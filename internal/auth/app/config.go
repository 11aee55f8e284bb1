package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/opkit/authd/pkg/jwtx"
)

type Config struct {
	AccessSecret  string // Required: HMAC secret for access tokens
	RefreshSecret string // Required: HMAC secret for refresh tokens (must differ from access)
	Pepper        string // Required: server-wide pepper mixed into password hashes

	AccessTTL  time.Duration // Access token lifetime (default: 1h)
	RefreshTTL time.Duration // Refresh token lifetime (default: 7d)
	Issuer     string        // Issuer claim for tokens (default: authd)
	Audience   string        // Audience claim for tokens (default: authd-client)

	MaxSessionsPerUser int // Active refresh sessions kept per user; 0 disables the cap (default: 5)

	DatabaseFile         string        // Path to SQLite database file (default: ./authd.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-session pruning interval (default: 1h)

	GoogleClientID     string // Optional: enables the Google resolver when set
	GoogleClientSecret string
	GoogleRedirectURI  string

	AppleClientID     string // Optional: enables the Apple resolver when set
	AppleClientSecret string
	AppleRedirectURI  string
}

// LoadConfig reads configuration from the environment. Missing secrets and a
// malformed TTL are configuration errors that must abort startup.
func LoadConfig() (Config, error) {
	cfg := Config{
		AccessSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("AUTH_REFRESH_SECRET"),
		Pepper:        os.Getenv("AUTH_PEPPER"),

		Issuer:   getEnvOrDefault("AUTH_ISSUER", "authd"),
		Audience: getEnvOrDefault("AUTH_AUDIENCE", "authd-client"),

		MaxSessionsPerUser: getEnvIntOrDefault("AUTH_MAX_SESSIONS_PER_USER", 5),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "authd.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		GoogleClientID:     os.Getenv("AUTH_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("AUTH_GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv("AUTH_GOOGLE_REDIRECT_URI"),

		AppleClientID:     os.Getenv("AUTH_APPLE_CLIENT_ID"),
		AppleClientSecret: os.Getenv("AUTH_APPLE_CLIENT_SECRET"),
		AppleRedirectURI:  os.Getenv("AUTH_APPLE_REDIRECT_URI"),
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, errors.New("app: AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return Config{}, errors.New("app: access and refresh secrets must differ")
	}
	if cfg.Pepper == "" {
		return Config{}, errors.New("app: AUTH_PEPPER is required")
	}

	var err error
	if cfg.AccessTTL, err = parseTTLEnv("AUTH_ACCESS_TTL", "1h"); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = parseTTLEnv("AUTH_REFRESH_TTL", "7d"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// parseTTLEnv reads a TTL in the "<integer><unit>" grammar. A set but
// malformed value fails loudly instead of silently falling back.
func parseTTLEnv(key, defaultValue string) (time.Duration, error) {
	raw := getEnvOrDefault(key, defaultValue)
	ttl, err := jwtx.ParseTTL(raw)
	if err != nil {
		return 0, fmt.Errorf("app: %s: %w", key, err)
	}
	return ttl, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
