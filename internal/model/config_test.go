package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	def := DefaultAppConfig()
	assert.Equal(t, def.Remote, cfg.Remote)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "default", cfg.Display.Theme)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
remote:
  backend: redis
  redis_addr: cache.internal:6380
  command_timeout_sec: 3
log:
  level: debug
`), 0o600)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Remote.Backend)
	assert.Equal(t, "cache.internal:6380", cfg.Remote.RedisAddr)
	assert.Equal(t, "tasksync:", cfg.Remote.RedisPrefix)
	assert.Equal(t, 3*time.Second, cfg.Remote.CommandTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("remote:\n  backend: firebase\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "firebase")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.Remote.Backend = BackendMemory
	cfg.Log.Level = "warn"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, loaded.Remote.Backend)
	assert.Equal(t, "warn", loaded.Log.Level)
	assert.Equal(t, cfg.Remote.SQLitePath, loaded.Remote.SQLitePath)
}

func TestCommandTimeoutFallback(t *testing.T) {
	assert.Equal(t, 10*time.Second, RemoteConfig{}.CommandTimeout())
}
