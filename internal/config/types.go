package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ramadan8/MediaUtility/pkg/mediautil"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/storage"
)

// Config is the complete configuration shared by the server and the CLI.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Cache      CacheConfig      `yaml:"cache"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Index      IndexConfig      `yaml:"index"`
	Media      MediaConfig      `yaml:"media"`
	Lookup     LookupConfig     `yaml:"lookup"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// CacheConfig points at the networked store. Redis defaults to DefaultRedis;
// setting it to "" keeps lookups in process memory without probing.
type CacheConfig struct {
	Redis        string `yaml:"redis"`
	ProbeTimeout string `yaml:"probe_timeout"`
}

// RecognizerConfig selects the recognizer: an HTTP service when URL is set,
// the local fingerprint index otherwise.
type RecognizerConfig struct {
	URL string `yaml:"url"`
}

type IndexConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	SampleRate int    `yaml:"sample_rate"`
	MinCount   int    `yaml:"min_count"`
}

type MediaConfig struct {
	TempDir string `yaml:"temp_dir"`
	YTDLP   string `yaml:"ytdlp"`
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
	Workers int    `yaml:"workers"`
	Queue   int    `yaml:"queue"`
}

type LookupConfig struct {
	Duration int `yaml:"duration"`
}

type TimeoutsConfig struct {
	Resolve   string `yaml:"resolve"`
	Extract   string `yaml:"extract"`
	Recognize string `yaml:"recognize"`
	Convert   string `yaml:"convert"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", s.Port)
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if c.ProbeTimeout != "" {
		if _, err := time.ParseDuration(c.ProbeTimeout); err != nil {
			return fmt.Errorf("invalid probe_timeout: %w", err)
		}
	}
	return nil
}

func (i *IndexConfig) Validate() error {
	switch strings.ToLower(i.Driver) {
	case storage.DriverSQLite, storage.DriverPostgres:
	default:
		return fmt.Errorf("index driver must be %q or %q, got: %q", storage.DriverSQLite, storage.DriverPostgres, i.Driver)
	}
	if i.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be greater than 0, got: %d", i.SampleRate)
	}
	if i.MinCount < 0 {
		return fmt.Errorf("min_count cannot be negative, got: %d", i.MinCount)
	}
	return nil
}

func (m *MediaConfig) Validate() error {
	if m.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got: %d", m.Workers)
	}
	if m.Queue < 0 {
		return fmt.Errorf("queue cannot be negative, got: %d", m.Queue)
	}
	return nil
}

func (l *LookupConfig) Validate() error {
	if l.Duration <= 0 {
		return fmt.Errorf("duration must be greater than 0, got: %d", l.Duration)
	}
	return nil
}

func (t *TimeoutsConfig) Validate() error {
	_, err := t.Durations()
	return err
}

// Durations parses the configured timeouts. Empty entries stay zero and so
// keep the service defaults.
func (t *TimeoutsConfig) Durations() (mediautil.Timeouts, error) {
	var out mediautil.Timeouts
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"resolve", t.Resolve, &out.Resolve},
		{"extract", t.Extract, &out.Extract},
		{"recognize", t.Recognize, &out.Recognize},
		{"convert", t.Convert, &out.Convert},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return out, fmt.Errorf("invalid %s timeout: %w", f.name, err)
		}
		if d <= 0 {
			return out, fmt.Errorf("%s timeout must be positive, got: %s", f.name, f.raw)
		}
		*f.dst = d
	}
	return out, nil
}

// ProbeTimeoutDuration returns the parsed probe timeout, or zero when unset.
func (c *CacheConfig) ProbeTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ProbeTimeout)
	return d
}
