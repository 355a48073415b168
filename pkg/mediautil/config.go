package mediautil

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/ramadan8/MediaUtility/pkg/mediautil/media"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/worker"
)

const DefaultDuration = 15

// Timeouts bound each external step. Zero fields keep their defaults.
type Timeouts struct {
	Resolve   time.Duration
	Extract   time.Duration
	Recognize time.Duration
	Convert   time.Duration
}

var DefaultTimeouts = Timeouts{
	Resolve:   30 * time.Second,
	Extract:   2 * time.Minute,
	Recognize: 30 * time.Second,
	Convert:   10 * time.Minute,
}

type Config struct {
	Cache      Cache
	Resolver   Resolver
	Extractor  Extractor
	Recognizer Recognizer
	Converter  Converter
	Downloader Downloader
	Pool       *worker.Pool
	Logger     Logger
	TempDir    string
	Duration   int
	Timeouts   Timeouts
}

type Option func(*Config)

func WithCache(c Cache) Option {
	return func(cfg *Config) {
		cfg.Cache = c
	}
}

func WithResolver(r Resolver) Option {
	return func(cfg *Config) {
		cfg.Resolver = r
	}
}

func WithExtractor(e Extractor) Option {
	return func(cfg *Config) {
		cfg.Extractor = e
	}
}

func WithRecognizer(r Recognizer) Option {
	return func(cfg *Config) {
		cfg.Recognizer = r
	}
}

func WithConverter(c Converter) Option {
	return func(cfg *Config) {
		cfg.Converter = c
	}
}

func WithDownloader(d Downloader) Option {
	return func(cfg *Config) {
		cfg.Downloader = d
	}
}

func WithPool(p *worker.Pool) Option {
	return func(cfg *Config) {
		cfg.Pool = p
	}
}

func WithLogger(log Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = log
	}
}

func WithTempDir(dir string) Option {
	return func(cfg *Config) {
		cfg.TempDir = dir
	}
}

// WithDefaultDuration sets the clip length used when FindSong is not given
// one.
func WithDefaultDuration(seconds int) Option {
	return func(cfg *Config) {
		if seconds > 0 {
			cfg.Duration = seconds
		}
	}
}

func WithTimeouts(t Timeouts) Option {
	return func(cfg *Config) {
		if t.Resolve > 0 {
			cfg.Timeouts.Resolve = t.Resolve
		}
		if t.Extract > 0 {
			cfg.Timeouts.Extract = t.Extract
		}
		if t.Recognize > 0 {
			cfg.Timeouts.Recognize = t.Recognize
		}
		if t.Convert > 0 {
			cfg.Timeouts.Convert = t.Convert
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		TempDir:  os.TempDir(),
		Duration: DefaultDuration,
		Timeouts: DefaultTimeouts,
	}
}

// HTTPDownloader fetches links with a plain GET, naming the file after the
// response's Content-Type.
type HTTPDownloader struct {
	Client *http.Client
}

func (d HTTPDownloader) Download(ctx context.Context, link, dir, name string) (string, error) {
	return media.DownloadFile(ctx, d.Client, link, dir, name)
}
