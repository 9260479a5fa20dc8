package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "tweet_id", cfg.Clean.IDColumn)
	assert.Equal(t, "created_at", cfg.Clean.TimeColumn)
	assert.Equal(t, "text", cfg.Clean.TextColumn)
	assert.Equal(t, 0.5, cfg.NER.ConfidenceThreshold)
	assert.Equal(t, "http://localhost:8090", cfg.NER.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.NER.RequestTimeout)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.BaseURL)
	assert.Equal(t, 1.0, cfg.Geocode.RateLimit)
	assert.Equal(t, 3, cfg.Geocode.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Geocode.InitialBackoff)
	assert.Equal(t, 300, cfg.Geocode.MaxRows)
	assert.Equal(t, "heatmap", cfg.Viz.Mode)
	assert.Equal(t, 24*time.Hour, cfg.Viz.Window)
	assert.False(t, cfg.Viz.Cumulative)
	assert.Equal(t, "data/processed", cfg.Output.Dir)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
log:
  level: debug
  format: console
ner:
  confidence_threshold: 0.8
  model_path: /models/custom
geocode:
  max_attempts: 5
  initial_backoff: 2s
viz:
  mode: animate
  window: 6h
  cumulative: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 0.8, cfg.NER.ConfidenceThreshold)
	assert.Equal(t, "/models/custom", cfg.NER.ModelPath)
	assert.Equal(t, 5, cfg.Geocode.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Geocode.InitialBackoff)
	assert.Equal(t, "animate", cfg.Viz.Mode)
	assert.Equal(t, 6*time.Hour, cfg.Viz.Window)
	assert.True(t, cfg.Viz.Cumulative)

	// Untouched keys keep their defaults.
	assert.Equal(t, "tweet_id", cfg.Clean.IDColumn)
	assert.Equal(t, 1.0, cfg.Geocode.RateLimit)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TEXT2MAP_LOG_LEVEL", "warn")
	t.Setenv("TEXT2MAP_GEOCODE_USER_AGENT", "text2map-test/0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text2map-test/0.1", cfg.Geocode.UserAgent)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: ["), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	assert.NoError(t, err)
}
