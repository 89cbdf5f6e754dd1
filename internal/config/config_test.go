package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("MAILERLITE_API_KEY", "")
	t.Setenv("MAILERLITE_API_URL", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("SYNC_PAGE_DELAY", "")
	t.Setenv("SYNC_RATE_LIMIT_BACKOFF", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, filepath.Join("./data", "archive.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("./data", "index.bleve"), cfg.IndexPath)
	assert.Equal(t, filepath.Join("./data", "content"), cfg.ContentDir)
	assert.Equal(t, "localhost:8182", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.SyncPageDelay)
	assert.Equal(t, 10*time.Second, cfg.SyncRateLimitBackoff)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/var/lib/newsletters")
	t.Setenv("MAILERLITE_API_KEY", "key-123")
	t.Setenv("MAILERLITE_API_URL", "http://localhost:9999/api")
	t.Setenv("LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("SYNC_PAGE_DELAY", "500ms")
	t.Setenv("SYNC_RATE_LIMIT_BACKOFF", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/newsletters", cfg.DataDir)
	assert.Equal(t, filepath.Join("/var/lib/newsletters", "archive.db"), cfg.DBPath)
	assert.Equal(t, "key-123", cfg.MailerLiteAPIKey)
	assert.Equal(t, "http://localhost:9999/api", cfg.MailerLiteAPIURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.SyncPageDelay)
	assert.Equal(t, 30*time.Second, cfg.SyncRateLimitBackoff)
}

func TestLoad_BadDurationRejected(t *testing.T) {
	t.Setenv("SYNC_PAGE_DELAY", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestSetDataDir_RecomputesDerivedPaths(t *testing.T) {
	cfg := &Config{}
	cfg.SetDataDir("/mnt/archive")

	assert.Equal(t, "/mnt/archive", cfg.DataDir)
	assert.Equal(t, "/mnt/archive/archive.db", cfg.DBPath)
	assert.Equal(t, "/mnt/archive/index.bleve", cfg.IndexPath)
	assert.Equal(t, "/mnt/archive/content", cfg.ContentDir)
}
