package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "database/adsb_data.db", cfg.Store.Path)
	assert.Equal(t, "https://api.adsbdb.com/v0", cfg.ADSBDB.BaseURL)
	assert.Equal(t, "adsb-analytics/1.0", cfg.ADSBDB.UserAgent)
	assert.Equal(t, 10, cfg.ADSBDB.TimeoutSecs)
	assert.Equal(t, "http://localhost:8080/data/aircraft.json", cfg.Receiver.URL)
	assert.Equal(t, 5, cfg.Receiver.TimeoutSecs)
	assert.Equal(t, 50, cfg.Enrich.BatchSize)
	assert.Equal(t, 5, cfg.Enrich.DebugBatchSize)
	assert.Equal(t, 300, cfg.Enrich.PacingMillis)
	assert.Equal(t, 500, cfg.Enrich.BackfillPacingMillis)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 500, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "summaries/today.txt", cfg.Summary.Path)
	assert.Equal(t, 200, cfg.Summary.MaxRows)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/adsb
adsbdb:
  timeout_secs: 20
enrich:
  batch_size: 25
  pacing_ms: 100
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/adsb", cfg.Store.DatabaseURL)
	assert.Equal(t, 20, cfg.ADSBDB.TimeoutSecs)
	assert.Equal(t, 25, cfg.Enrich.BatchSize)
	assert.Equal(t, 100, cfg.Enrich.PacingMillis)
	// Untouched keys keep defaults.
	assert.Equal(t, 500, cfg.Enrich.BackfillPacingMillis)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
