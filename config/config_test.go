package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  dsn: "file:test.db"
auth:
  jwt_secret: "secret"
watcher:
  enabled: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.True(t, cfg.Watcher.Enabled)

	// Everything unspecified falls back to a working value.
	assert.Equal(t, 15, cfg.Server.CacheTTLSeconds)
	assert.Equal(t, "https://w5.ab.ust.hk/njggt/api/app", cfg.Vendor.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Vendor.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Watcher.Interval)
	assert.Equal(t, "0 3 * * *", cfg.Janitor.CronSpec)
	assert.Equal(t, 30, cfg.Janitor.RetentionDays)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
