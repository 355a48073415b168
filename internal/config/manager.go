// Package config loads the YAML configuration shared by the server and the
// CLI, with ${VAR} substitution and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ramadan8/MediaUtility/pkg/mediautil"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/storage"
)

const (
	// PathEnv names the variable holding the config file path.
	PathEnv = "MEDIAUTIL_CONFIG"

	// DefaultRedis is probed on first use; an unreachable server degrades
	// the cache to process memory.
	DefaultRedis = "redis://localhost:6379"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Cache: CacheConfig{
			Redis:        DefaultRedis,
			ProbeTimeout: "2s",
		},
		Index: IndexConfig{
			Driver:     storage.DriverSQLite,
			DSN:        storage.DefaultSQLitePath,
			SampleRate: 11025,
			MinCount:   5,
		},
		Media: MediaConfig{
			TempDir: os.TempDir(),
		},
		Lookup: LookupConfig{
			Duration: mediautil.DefaultDuration,
		},
		Timeouts: TimeoutsConfig{
			Resolve:   mediautil.DefaultTimeouts.Resolve.String(),
			Extract:   mediautil.DefaultTimeouts.Extract.String(),
			Recognize: mediautil.DefaultTimeouts.Recognize.String(),
			Convert:   mediautil.DefaultTimeouts.Convert.String(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by MEDIAUTIL_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(PathEnv))
}

// ApplyEnv overrides cfg with the well-known environment variables.
func ApplyEnv(cfg *Config) {
	cfg.Cache.Redis = getEnvOrDefault("REDIS_HOST", cfg.Cache.Redis)
	cfg.Recognizer.URL = getEnvOrDefault("MEDIAUTIL_RECOGNIZER_URL", cfg.Recognizer.URL)
	cfg.Index.DSN = getEnvOrDefault(storage.PathEnv, cfg.Index.DSN)
	cfg.Media.TempDir = getEnvOrDefault("MEDIAUTIL_TEMP_DIR", cfg.Media.TempDir)
	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
}

func (c *Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"cache", c.Cache.Validate},
		{"index", c.Index.Validate},
		{"media", c.Media.Validate},
		{"lookup", c.Lookup.Validate},
		{"timeouts", c.Timeouts.Validate},
	}
	var errs []error
	for _, check := range checks {
		if err := check.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", check.name, err))
		}
	}
	return errors.Join(errs...)
}

// substituteEnvVars replaces ${VAR} with its value. Unset variables are left
// as written so the mistake shows up in validation or logs.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-1])
		if value := os.Getenv(name); value != "" {
			return value
		}
		return match
	})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
