package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.MinZoom)
	assert.Equal(t, 10.0, cfg.MaxZoom)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 30, cfg.PollAttempts)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SEGEDITOR_MIN_ZOOM", "0.5")
	t.Setenv("SEGEDITOR_POLL_INTERVAL", "250ms")
	t.Setenv("SEGEDITOR_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.MinZoom)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoadRejectsInvertedZoom(t *testing.T) {
	t.Setenv("SEGEDITOR_MIN_ZOOM", "4")
	t.Setenv("SEGEDITOR_MAX_ZOOM", "2")

	_, err := Load()
	assert.Error(t, err)
}
