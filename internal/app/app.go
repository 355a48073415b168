// Package app assembles the shared runtime (cache, worker pool, index,
// recognizer and lookup service) from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ramadan8/MediaUtility/internal/config"
	"github.com/ramadan8/MediaUtility/pkg/logger"
	"github.com/ramadan8/MediaUtility/pkg/mediautil"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/cache"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/media"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/recognize"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/storage"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/worker"
)

type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Cache   *cache.ResilientCache
	Pool    *worker.Pool
	Index   *storage.Index
	Local   *recognize.Local
	Remote  *recognize.HTTPRecognizer // nil unless recognizer.url is set
	FFmpeg  media.FFmpeg
	Service *mediautil.Service
}

// New opens every resource named by cfg. The caller must Close the App.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	timeouts, err := cfg.Timeouts.Durations()
	if err != nil {
		return nil, err
	}

	var primary cache.Backend
	if cfg.Cache.Redis != "" {
		rb, err := cache.NewRedisBackend(cfg.Cache.Redis)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		primary = rb
	}
	cacheOpts := []cache.Option{cache.WithLogger(log)}
	if d := cfg.Cache.ProbeTimeoutDuration(); d > 0 {
		cacheOpts = append(cacheOpts, cache.WithProbeTimeout(d))
	}
	rc := cache.New(primary, cacheOpts...)

	idx, err := storage.Open(cfg.Index.Driver, cfg.Index.DSN)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("index: %w", err)
	}

	a := &App{
		Config: cfg,
		Log:    log,
		Cache:  rc,
		Index:  idx,
		FFmpeg: media.FFmpeg{Binary: cfg.Media.FFmpeg},
	}
	a.Pool = worker.New(cfg.Media.Workers, poolOpts(cfg.Media)...)
	a.Local = recognize.NewLocal(idx, a.FFmpeg,
		recognize.WithTempDir(cfg.Media.TempDir),
		recognize.WithSampleRate(cfg.Index.SampleRate),
		recognize.WithMinCount(cfg.Index.MinCount),
		recognize.WithLocalLogger(log),
	)

	var recognizer mediautil.Recognizer = a.Local
	if cfg.Recognizer.URL != "" {
		a.Remote = recognize.NewHTTPRecognizer(cfg.Recognizer.URL, &http.Client{Timeout: timeouts.Recognize})
		recognizer = a.Remote
	}

	a.Service, err = mediautil.NewService(
		mediautil.WithCache(rc),
		mediautil.WithResolver(media.NewYTDLPResolver(cfg.Media.YTDLP)),
		mediautil.WithExtractor(a.FFmpeg),
		mediautil.WithConverter(a.FFmpeg),
		mediautil.WithRecognizer(recognizer),
		mediautil.WithPool(a.Pool),
		mediautil.WithLogger(log),
		mediautil.WithTempDir(cfg.Media.TempDir),
		mediautil.WithDefaultDuration(cfg.Lookup.Duration),
		mediautil.WithTimeouts(timeouts),
	)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func poolOpts(m config.MediaConfig) []worker.Option {
	if m.Queue > 0 {
		return []worker.Option{worker.WithQueueSize(m.Queue)}
	}
	return nil
}

// Close drains the pool, then releases the cache and index.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Pool != nil {
		if err := a.Pool.Shutdown(ctx); err != nil {
			a.Pool.StopNow()
			errs = append(errs, err)
		}
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	return errors.Join(errs...)
}
