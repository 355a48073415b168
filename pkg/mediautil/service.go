// Package mediautil identifies the song playing in a piece of online media
// and converts media between formats.
//
// A Service resolves a link with yt-dlp, cuts a short audio window with
// ffmpeg, hands it to a Recognizer and remembers the answer, including "no
// match", in a ResilientCache so repeated lookups of the same window never
// reach the recognizer again.
package mediautil

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ramadan8/MediaUtility/pkg/logger"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/cache"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/media"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/timestamp"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/worker"
	"github.com/ramadan8/MediaUtility/pkg/utils"
)

// lookupFormat keeps the resolved stream as small as possible; only a few
// seconds of audio are ever read from it.
const lookupFormat = "worstaudio/worst"

type Service struct {
	cfg *Config

	cache      Cache
	resolver   Resolver
	extractor  Extractor
	recognizer Recognizer
	converter  Converter
	downloader Downloader
	pool       *worker.Pool
	log        Logger

	ownsCache bool
	ownsPool  bool

	flights singleflight.Group
}

// NewService wires a Service. Only the recognizer is mandatory; everything
// else falls back to the yt-dlp/ffmpeg defaults and a memory-only cache.
func NewService(opts ...Option) (*Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("%w: a recognizer is required", ErrInvalidInput)
	}

	s := &Service{
		cfg:        cfg,
		cache:      cfg.Cache,
		resolver:   cfg.Resolver,
		extractor:  cfg.Extractor,
		recognizer: cfg.Recognizer,
		converter:  cfg.Converter,
		downloader: cfg.Downloader,
		pool:       cfg.Pool,
		log:        cfg.Logger,
	}
	if s.log == nil {
		s.log = logger.GetLogger()
	}
	if s.cache == nil {
		s.cache = cache.New(nil, cache.WithLogger(s.log))
		s.ownsCache = true
	}
	if s.resolver == nil {
		s.resolver = media.NewYTDLPResolver("")
	}
	if s.extractor == nil {
		s.extractor = media.FFmpeg{}
	}
	if s.converter == nil {
		s.converter = media.FFmpeg{}
	}
	if s.downloader == nil {
		s.downloader = HTTPDownloader{}
	}
	if s.pool == nil {
		s.pool = worker.New(0)
		s.ownsPool = true
	}
	return s, nil
}

type findConfig struct {
	timestamp *int
	duration  int
	noCache   bool
}

type FindOption func(*findConfig)

// WithTimestamp starts the scan at seconds, overriding any hint in the link.
func WithTimestamp(seconds int) FindOption {
	return func(fc *findConfig) {
		fc.timestamp = &seconds
	}
}

// WithDuration sets the clip length in seconds.
func WithDuration(seconds int) FindOption {
	return func(fc *findConfig) {
		fc.duration = seconds
	}
}

// WithoutCache skips both the cache lookup and the write-back.
func WithoutCache() FindOption {
	return func(fc *findConfig) {
		fc.noCache = true
	}
}

// FindSong identifies the song audible in link. A nil record with a nil
// error means the recognizer found nothing.
func (s *Service) FindSong(ctx context.Context, link string, opts ...FindOption) (*SongRecord, error) {
	fc := findConfig{duration: s.cfg.Duration}
	for _, opt := range opts {
		opt(&fc)
	}
	if fc.duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidInput, fc.duration)
	}
	if _, err := utils.ValidateURL(link); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	info, resolveErr := s.resolve(ctx, link)
	if resolveErr != nil {
		s.log.Warnf("Could not resolve %s, using the link directly: %v", link, resolveErr)
	}

	scanStart := timestamp.Resolve(fc.timestamp, link, info)

	cacheUsable := !fc.noCache && info != nil
	var key string
	if cacheUsable {
		key = cache.DeriveKey(info.ExtractorKey, info.ID, scanStart)
		rec, found, err := s.lookup(ctx, key)
		switch {
		case errors.Is(err, cache.ErrStoreOperation):
			s.log.Warnf("Cache unavailable for %s: %v", key, err)
			cacheUsable = false
		case err != nil:
			s.log.Warnf("Ignoring unreadable cache entry %s: %v", key, err)
		case found && rec.IsEmpty():
			s.log.Debugf("Cache hit (no match) for %s", key)
			return nil, nil
		case found:
			s.log.Debugf("Cache hit for %s", key)
			return &rec, nil
		}
	}

	flightKey := key
	if flightKey == "" {
		flightKey = fmt.Sprintf("nocache|%s|%d", link, scanStart)
	}
	flightKey = fmt.Sprintf("%s|%d|%t", flightKey, fc.duration, cacheUsable)

	// The shared run outlives any single caller; the step timeouts bound it.
	runCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(flightKey, func() (any, error) {
		return s.identify(runCtx, link, info, resolveErr, scanStart, fc.duration, key, cacheUsable)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.log.Debugf("Shared recognition run for %s", flightKey)
	}

	rec, _ := res.Val.(*SongRecord)
	if rec == nil {
		return nil, nil
	}
	out := *rec
	out.Metadata = maps.Clone(rec.Metadata)
	return &out, nil
}

func (s *Service) resolve(ctx context.Context, link string) (*MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Resolve)
	defer cancel()

	info, err := s.resolver.Resolve(ctx, link, media.ResolveOptions{
		Format: lookupFormat,
		Index:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: no metadata for %s", ErrResolution, link)
	}
	return info, nil
}

// identify runs extraction and recognition for one window and writes the
// outcome back to the cache when cacheUsable.
func (s *Service) identify(ctx context.Context, link string, info *MediaInfo, resolveErr error, scanStart, duration int, key string, cacheUsable bool) (*SongRecord, error) {
	dir, err := os.MkdirTemp(s.cfg.TempDir, "mediautil-find-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	defer os.RemoveAll(dir)

	source := link
	if info != nil && info.StreamURL != "" {
		source = info.StreamURL
	}

	var clip string
	err = s.pool.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Extract)
		defer cancel()
		path, err := s.extractor.ExtractWindow(ctx, source, scanStart, duration, dir)
		clip = path
		return err
	})
	if err != nil {
		if resolveErr != nil {
			err = errors.Join(err, resolveErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Recognize)
	candidates, err := s.recognizer.Recognize(rctx, clip)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecognition, err)
	}

	if len(candidates) == 0 {
		if cacheUsable {
			s.store(ctx, key, cache.EncodeEmpty())
		}
		return nil, nil
	}

	rec := candidates[0].Record()
	if rec.IsEmpty() {
		if cacheUsable {
			s.store(ctx, key, cache.EncodeEmpty())
		}
		return nil, nil
	}
	if cacheUsable {
		data, err := cache.EncodeSong(rec)
		if err != nil {
			s.log.Warnf("Could not encode record for %s: %v", key, err)
		} else {
			s.store(ctx, key, data)
		}
	}
	return &rec, nil
}

func (s *Service) lookup(ctx context.Context, key string) (SongRecord, bool, error) {
	data, found, err := s.cache.Get(ctx, key)
	if err != nil || !found {
		return SongRecord{}, false, err
	}
	rec, err := cache.Decode(data)
	if err != nil {
		return SongRecord{}, false, err
	}
	return rec, true, nil
}

func (s *Service) store(ctx context.Context, key string, data []byte) {
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.log.Warnf("Cache write for %s failed: %v", key, err)
	}
}

func cacheKey(info *MediaInfo, scanStart int) (string, error) {
	if info == nil {
		return "", fmt.Errorf("%w: media info is required", ErrInvalidInput)
	}
	return cache.DeriveKey(info.ExtractorKey, info.ID, scanStart), nil
}

// RecordEmpty remembers that the window at scanStart has no identifiable
// song.
func (s *Service) RecordEmpty(ctx context.Context, info *MediaInfo, scanStart int) error {
	key, err := cacheKey(info, scanStart)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, cache.EncodeEmpty())
}

// RecordSong stores rec for the window at scanStart. An empty rec is stored
// as a negative result.
func (s *Service) RecordSong(ctx context.Context, info *MediaInfo, scanStart int, rec SongRecord) error {
	key, err := cacheKey(info, scanStart)
	if err != nil {
		return err
	}
	if rec.IsEmpty() {
		return s.cache.Set(ctx, key, cache.EncodeEmpty())
	}
	data, err := cache.EncodeSong(rec)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data)
}

// LookupCached reads the cached outcome for a window without triggering a
// recognition. found is false on a miss; a found, empty record is a cached
// "no match".
func (s *Service) LookupCached(ctx context.Context, info *MediaInfo, scanStart int) (SongRecord, bool, error) {
	key, err := cacheKey(info, scanStart)
	if err != nil {
		return SongRecord{}, false, err
	}
	return s.lookup(ctx, key)
}

// Convert downloads link and transcodes it into outputDir as format. The
// returned path is owned by the caller.
func (s *Service) Convert(ctx context.Context, link, format, outputDir string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if _, err := utils.ValidateURL(link); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if !slices.Contains(media.Formats(), format) {
		return "", fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrUnsupportedFormat, format)
	}
	if outputDir == "" {
		outputDir = s.cfg.TempDir
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Convert)
	defer cancel()

	dir, err := os.MkdirTemp(s.cfg.TempDir, "mediautil-convert-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConversion, err)
	}
	defer os.RemoveAll(dir)

	input, name, err := s.fetch(ctx, link, format, dir)
	if err != nil {
		return "", err
	}

	var output string
	err = s.pool.Do(ctx, func(ctx context.Context) error {
		path, err := s.converter.Convert(ctx, input, outputDir, name, format)
		output = path
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConversion, err)
	}
	s.log.Infof("Converted %s to %s", link, output)
	return output, nil
}

// fetch downloads link into dir, through yt-dlp when it knows the site and
// with a plain GET otherwise.
func (s *Service) fetch(ctx context.Context, link, format, dir string) (string, string, error) {
	selector := "best"
	if format == "mp3" || format == "flac" {
		selector = "bestaudio/best"
	}

	info, err := s.resolver.Resolve(ctx, link, media.ResolveOptions{
		Download:  true,
		Format:    selector,
		Index:     1,
		OutputDir: dir,
	})
	if err == nil && info != nil && info.LocalPath != "" {
		name := utils.GenerateUUID()
		if info.Title != "" {
			name = utils.SafeFilename(info.Title)
		}
		return info.LocalPath, name, nil
	}
	if err != nil {
		s.log.Debugf("yt-dlp could not download %s, trying a direct download: %v", link, err)
	}

	name := utils.GenerateUUID()
	path, dlErr := s.downloader.Download(ctx, link, dir, name)
	if dlErr != nil {
		if err != nil {
			dlErr = errors.Join(dlErr, err)
		}
		return "", "", fmt.Errorf("%w: %w", ErrResolution, dlErr)
	}
	return path, name, nil
}

func (s *Service) Stats() Stats {
	var st Stats
	if rc, ok := s.cache.(interface {
		Mode() cache.Mode
		FallbackLen() int
	}); ok {
		st.CacheMode = rc.Mode().String()
		st.CacheFallbackEntries = rc.FallbackLen()
	}
	ps := s.pool.Stats()
	st.PoolSize = ps.Size
	st.PoolQueueSize = ps.QueueSize
	st.PoolRunning = ps.Running
	st.PoolWaiting = ps.Waiting
	return st
}

// Close drains the worker pool and closes the cache, but only those the
// service created itself.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	if s.ownsPool {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ownsCache {
		if c, ok := s.cache.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
