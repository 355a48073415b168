package mediautil

import (
	"context"

	"github.com/ramadan8/MediaUtility/pkg/mediautil/cache"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/media"
	"github.com/ramadan8/MediaUtility/pkg/models"
)

type Resolver interface {
	Resolve(ctx context.Context, link string, opts media.ResolveOptions) (*models.MediaInfo, error)
}

type Extractor interface {
	ExtractWindow(ctx context.Context, source string, startSec, durationSec int, outputDir string) (string, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) ([]models.Candidate, error)
}

type Converter interface {
	Convert(ctx context.Context, input, outputDir, name, format string) (string, error)
}

// Downloader fetches a link directly, without a resolver, and returns the
// local path.
type Downloader interface {
	Download(ctx context.Context, link, dir, name string) (string, error)
}

// Cache is satisfied by *cache.ResilientCache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value any, opts ...cache.SetOption) error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
