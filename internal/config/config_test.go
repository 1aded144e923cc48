package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "stations.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 6*time.Hour, cfg.UpdateInterval)
	assert.Equal(t, 20, cfg.RateLimit)
}

func TestOptions(t *testing.T) {
	cfg := New(
		WithDBPath("/tmp/other.db"),
		WithListenAddr(":9090"),
		WithLogLevel("debug"),
		WithUpdateInterval(30*time.Minute),
	)

	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.UpdateInterval)
}

func TestWithLogLevelInvalidFallsBackToInfo(t *testing.T) {
	cfg := New(WithLogLevel("shouting"))
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FUELRADAR_DB", "/data/stations.db")
	t.Setenv("FUELRADAR_ADDR", "0.0.0.0:8000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("FUELRADAR_UPDATE_INTERVAL", "1h30m")

	cfg := FromEnv()

	assert.Equal(t, "/data/stations.db", cfg.DBPath)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, 90*time.Minute, cfg.UpdateInterval)
}

func TestFromEnvBadDurationUsesDefault(t *testing.T) {
	t.Setenv("FUELRADAR_UPDATE_INTERVAL", "soon")
	cfg := FromEnv()
	assert.Equal(t, 6*time.Hour, cfg.UpdateInterval)
}
