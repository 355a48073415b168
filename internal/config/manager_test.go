package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis://localhost:6379", cfg.Cache.Redis)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Index.Driver)
	assert.Equal(t, 15, cfg.Lookup.Duration)

	timeouts, err := cfg.Timeouts.Durations()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeouts.Resolve)
	assert.Equal(t, 2*time.Minute, timeouts.Extract)
	assert.Equal(t, 2*time.Second, cfg.Cache.ProbeTimeoutDuration())
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	t.Setenv("MEDIAUTIL_TEST_REDIS", "cache.internal:6380")

	path := writeConfig(t, `
server:
  port: 9090
  allowed_origins: ["https://app.example"]
cache:
  redis: "${MEDIAUTIL_TEST_REDIS}"
  probe_timeout: "500ms"
recognizer:
  url: "http://127.0.0.1:3737"
index:
  driver: postgres
  dsn: "host=db user=media"
media:
  workers: 3
  queue: 6
lookup:
  duration: 20
timeouts:
  recognize: "45s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "cache.internal:6380", cfg.Cache.Redis)
	assert.Equal(t, 500*time.Millisecond, cfg.Cache.ProbeTimeoutDuration())
	assert.Equal(t, "http://127.0.0.1:3737", cfg.Recognizer.URL)
	assert.Equal(t, "postgres", cfg.Index.Driver)
	assert.Equal(t, 11025, cfg.Index.SampleRate, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Media.Workers)
	assert.Equal(t, 20, cfg.Lookup.Duration)

	timeouts, err := cfg.Timeouts.Durations()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, timeouts.Recognize)
	assert.Equal(t, 30*time.Second, timeouts.Resolve)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis:6379")
	t.Setenv("MEDIAUTIL_INDEX_PATH", "/data/index.sqlite3")
	t.Setenv("LOG_LEVEL", "debug")

	path := writeConfig(t, `
cache:
  redis: "localhost:6379"
`)
	t.Setenv(PathEnv, path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis)
	assert.Equal(t, "/data/index.sqlite3", cfg.Index.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEmptyRedisMeansMemoryOnly(t *testing.T) {
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load(writeConfig(t, "cache:\n  redis: \"\"\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Cache.Redis)
}

func TestUnsetVariableIsKept(t *testing.T) {
	assert.Equal(t, "redis: ${MEDIAUTIL_SURELY_UNSET}", substituteEnvVars("redis: ${MEDIAUTIL_SURELY_UNSET}"))
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad port", "server:\n  port: 70000\n", "port must be between"},
		{"bad driver", "index:\n  driver: mysql\n", "index driver must be"},
		{"bad sample rate", "index:\n  sample_rate: 0\n", "sample_rate"},
		{"negative workers", "media:\n  workers: -1\n", "workers cannot be negative"},
		{"zero duration", "lookup:\n  duration: 0\n", "duration must be greater than 0"},
		{"bad timeout", "timeouts:\n  extract: soon\n", "invalid extract timeout"},
		{"negative timeout", "timeouts:\n  resolve: -1s\n", "resolve timeout must be positive"},
		{"bad probe timeout", "cache:\n  probe_timeout: fast\n", "invalid probe_timeout"},
		{"broken yaml", "server: [port\n", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
