package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Engine.HistoryLimit)
	assert.Equal(t, 8, cfg.Engine.MaxParallel)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "pipeflow", cfg.Telemetry.ServiceName)
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeflow.yaml")
	body := `
engine:
  history_limit: 25
  max_parallel: 2
  default_step_timeout: 30s
cache:
  enabled: true
  addr: redis.internal:6380
  ttl: 90s
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Engine.HistoryLimit)
	assert.Equal(t, 2, cfg.Engine.MaxParallel)
	assert.Equal(t, 30*time.Second, cfg.Engine.DefaultStepTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis.internal:6380", cfg.Cache.Addr)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// Untouched sections keep their defaults.
	assert.Equal(t, "pipeflow", cfg.Telemetry.ServiceName)
}

func TestLoader_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Engine.HistoryLimit)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  history_limit: 25\n"), 0o644))

	t.Setenv("PIPEFLOW_ENGINE_HISTORY_LIMIT", "7")
	t.Setenv("PIPEFLOW_ENGINE_DEFAULT_STEP_TIMEOUT", "45s")
	t.Setenv("PIPEFLOW_CACHE_ENABLED", "true")
	t.Setenv("PIPEFLOW_LOG_LEVEL", "warn")
	t.Setenv("PIPEFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/pipeflow.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Engine.HistoryLimit, "env wins over file")
	assert.Equal(t, 45*time.Second, cfg.Engine.DefaultStepTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/var/log/pipeflow.log"}, cfg.Log.OutputPaths)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_ENGINE_MAX_PARALLEL", "3")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.MaxParallel)
}

func TestLoader_Validation(t *testing.T) {
	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("PIPEFLOW_LOG_LEVEL", "loud")
		_, err := NewLoader().Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.level")
	})

	t.Run("non-positive history limit", func(t *testing.T) {
		t.Setenv("PIPEFLOW_ENGINE_HISTORY_LIMIT", "0")
		_, err := NewLoader().Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "history_limit")
	})

	t.Run("cache enabled without addr", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeflow.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  enabled: true\n  addr: \"\"\n"), 0o644))
		_, err := NewLoader().WithConfigPath(path).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.addr")
	})

	t.Run("custom validator", func(t *testing.T) {
		sentinel := errors.New("nope")
		_, err := NewLoader().
			WithValidator(func(*Config) error { return sentinel }).
			Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel)
	})
}

func TestLoader_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [broken"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}
