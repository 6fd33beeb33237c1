package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Backend.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Debounce.Viewport)
	assert.Equal(t, 400*time.Millisecond, cfg.Debounce.Filters)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
backend:
  base_url: https://api.example.rs
  timeout: 5s
log:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.rs", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MAPSEARCH_BACKEND_BASE_URL", "https://env.example.rs")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.rs", cfg.Backend.BaseURL)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	cfg.Backend.BaseURL = ""
	cfg.Log.Level = "loud"
	cfg.Debounce.Query = 0

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.base_url")
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "debounce.query")
}

func TestLoadRejectsBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{{nope"), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}
