// Package config builds the process configuration once at startup and
// hands it to the components that need it. Nothing in here is mutable
// after construction.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config carries the runtime settings for the service and CLI.
type Config struct {
	DBPath         string
	ListenAddr     string
	LogLevel       slog.Level
	UpdateInterval time.Duration
	RateLimit      int // requests per IP per minute
}

// Option adjusts a Config during construction.
type Option func(*Config)

// WithDBPath sets the SQLite database path.
func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithListenAddr sets the HTTP listen address.
func WithListenAddr(addr string) Option {
	return func(c *Config) {
		c.ListenAddr = addr
	}
}

// WithLogLevel sets the log level from its string name, falling back
// to info on anything unrecognized.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.LogLevel = parseLevel(level)
	}
}

// WithUpdateInterval sets how often the server refreshes the feed.
func WithUpdateInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.UpdateInterval = interval
	}
}

// New creates a configuration with defaults, then applies the options.
func New(opts ...Option) *Config {
	cfg := &Config{
		DBPath:         "stations.db",
		ListenAddr:     "127.0.0.1:8080",
		LogLevel:       slog.LevelInfo,
		UpdateInterval: 6 * time.Hour,
		RateLimit:      20,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// FromEnv builds the configuration from environment variables, using
// defaults for anything unset.
func FromEnv() *Config {
	return New(
		WithDBPath(getEnvOrDefault("FUELRADAR_DB", "stations.db")),
		WithListenAddr(getEnvOrDefault("FUELRADAR_ADDR", "127.0.0.1:8080")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithUpdateInterval(getDurationEnvOrDefault("FUELRADAR_UPDATE_INTERVAL", 6*time.Hour)),
	)
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
