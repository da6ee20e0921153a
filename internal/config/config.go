package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultListenAddr       = ":8080"
	defaultDatabaseURL      = "sqlite:///tmp/interviewd.db"
	defaultAllowedOrigin    = "http://localhost:8000"
	defaultSessionIssuer    = "tauth"
	defaultSessionCookie    = "app_session"
	defaultRequestTimeout   = 30 * time.Second
	defaultIdempotencyTTL   = 10 * time.Minute
	defaultIdempotencyCap   = 10000
	defaultWelcomeCredits   = 20
	defaultLogLevel         = "info"
	LedgerBackendGorm       = "gorm"
	LedgerBackendPgx        = "pgx"
	IdempotencyBackendLocal = "memory"
	IdempotencyBackendRedis = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config aggregates runtime settings for interviewd.
type Config struct {
	ListenAddr          string
	DatabaseURL         string
	LedgerBackend       string
	AllowedOrigins      []string
	SessionSigningKey   string
	SessionIssuer       string
	SessionCookieName   string
	RequestTimeout      time.Duration
	IdempotencyBackend  string
	IdempotencyTTL      time.Duration
	IdempotencyCapacity int
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	WelcomeCredits      int64
	LogLevel            string
}

// Validate fills defaults and rejects values the server cannot run with.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	cfg.LedgerBackend = strings.ToLower(defaultIfEmpty(cfg.LedgerBackend, LedgerBackendGorm))
	cfg.IdempotencyBackend = strings.ToLower(defaultIfEmpty(cfg.IdempotencyBackend, IdempotencyBackendLocal))
	cfg.SessionIssuer = defaultIfEmpty(cfg.SessionIssuer, defaultSessionIssuer)
	cfg.SessionCookieName = defaultIfEmpty(cfg.SessionCookieName, defaultSessionCookie)
	cfg.LogLevel = defaultIfEmpty(cfg.LogLevel, defaultLogLevel)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = defaultIdempotencyTTL
	}
	if cfg.IdempotencyCapacity <= 0 {
		cfg.IdempotencyCapacity = defaultIdempotencyCap
	}
	if cfg.WelcomeCredits < 0 {
		return fmt.Errorf("%w: welcome credits must not be negative", ErrInvalidConfig)
	}

	switch cfg.LedgerBackend {
	case LedgerBackendGorm:
	case LedgerBackendPgx:
		if !IsPostgresURL(cfg.DatabaseURL) {
			return fmt.Errorf("%w: ledger backend %q requires a postgres database url", ErrInvalidConfig, cfg.LedgerBackend)
		}
	default:
		return fmt.Errorf("%w: unknown ledger backend %q", ErrInvalidConfig, cfg.LedgerBackend)
	}
	switch cfg.IdempotencyBackend {
	case IdempotencyBackendLocal:
	case IdempotencyBackendRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return fmt.Errorf("%w: redis addr is required for the redis idempotency backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown idempotency backend %q", ErrInvalidConfig, cfg.IdempotencyBackend)
	}
	if len(cfg.SessionSigningKey) == 0 {
		return fmt.Errorf("%w: jwt signing key is required", ErrInvalidConfig)
	}
	return nil
}

// DefaultWelcomeCredits is granted on a user's first authenticated request.
func DefaultWelcomeCredits() int64 {
	return defaultWelcomeCredits
}

// IsPostgresURL reports whether dsn selects the postgres driver.
func IsPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
