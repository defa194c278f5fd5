package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := loadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("TIERSCORE_PORT", "9090")
	t.Setenv("TIERSCORE_DATABASE_URL", "postgres://localhost/tierscore")
	t.Setenv("TIERSCORE_STORAGE_BACKEND", "s3")
	t.Setenv("TIERSCORE_STORAGE_BUCKET", "scores")
	t.Setenv("TIERSCORE_STORAGE_S3_REGION", "eu-west-1")
	t.Setenv("TIERSCORE_LOG_LEVEL", "debug")
	t.Setenv("TIERSCORE_SHUTDOWN_TIMEOUT", "2s")

	cfg, err := loadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://localhost/tierscore", cfg.DatabaseURL)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "scores", cfg.Storage.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
}

func TestLoadServerConfigRejectsBadDuration(t *testing.T) {
	t.Setenv("TIERSCORE_SHUTDOWN_TIMEOUT", "soon")
	_, err := loadServerConfig()
	assert.Error(t, err)
}
