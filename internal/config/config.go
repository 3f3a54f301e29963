package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultMetricsAddr     = ":9090"
	defaultSessionLifetime = 12 * time.Hour
	defaultSessionIdle     = 30 * time.Minute

	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
	SessionStoreMemory   = "memory"
)

type Config struct {
	DatabaseURL        string
	HTTPAddr           string
	MetricsAddr        string
	AuthCookieSecure   bool
	SessionLifetime    time.Duration
	SessionIdleTimeout time.Duration
	SessionStore       string
	RedisURL           string
	SignupEnabled      bool
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HTTPAddr:           getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:        getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		AuthCookieSecure:   getenvBoolDefault("AUTH_COOKIE_SECURE", false),
		SessionLifetime:    getenvDurationDefault("SESSION_LIFETIME", defaultSessionLifetime),
		SessionIdleTimeout: getenvDurationDefault("SESSION_IDLE_TIMEOUT", defaultSessionIdle),
		SessionStore:       strings.ToLower(strings.TrimSpace(getenvDefault("SESSION_STORE", SessionStorePostgres))),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		SignupEnabled:      getenvBoolDefault("SIGNUP_ENABLED", true),
	}

	switch cfg.SessionStore {
	case SessionStorePostgres, SessionStoreMemory:
	case SessionStoreRedis:
		if cfg.RedisURL == "" {
			return cfg, errors.New("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return cfg, fmt.Errorf("SESSION_STORE must be one of: %s, %s, %s", SessionStorePostgres, SessionStoreRedis, SessionStoreMemory)
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
