package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.StoreDSN)
	assert.Zero(t, cfg.ProjectID)
	assert.Equal(t, "spanwatch", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.AnalyzeLimit)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SPANWATCH_STORE_DSN", "postgres://localhost/spanwatch")
	t.Setenv("SPANWATCH_PROJECT_ID", "42")
	t.Setenv("SPANWATCH_LOG_LEVEL", "debug")
	t.Setenv("SPANWATCH_ANALYZE_LIMIT", "8")
	t.Setenv("SPANWATCH_STORE_TIMEOUT", "10s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/spanwatch", cfg.StoreDSN)
	assert.Equal(t, int64(42), cfg.ProjectID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.AnalyzeLimit)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
}

func TestLoadMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("SPANWATCH_PROJECT_ID", "not-a-number")
	t.Setenv("SPANWATCH_STORE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.ProjectID)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("SPANWATCH_PROJECT_ID", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPANWATCH_PROJECT_ID")

	t.Setenv("SPANWATCH_PROJECT_ID", "1")
	t.Setenv("SPANWATCH_ANALYZE_LIMIT", "0")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPANWATCH_ANALYZE_LIMIT")
}
