package mediautil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ramadan8/MediaUtility/pkg/mediautil/cache"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/media"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, link string, opts media.ResolveOptions) (*MediaInfo, error) {
	args := m.Called(ctx, link, opts)
	info, _ := args.Get(0).(*MediaInfo)
	return info, args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractWindow(ctx context.Context, source string, startSec, durationSec int, outputDir string) (string, error) {
	args := m.Called(ctx, source, startSec, durationSec, outputDir)
	return args.String(0), args.Error(1)
}

type mockRecognizer struct {
	mock.Mock
}

func (m *mockRecognizer) Recognize(ctx context.Context, audioPath string) ([]Candidate, error) {
	args := m.Called(ctx, audioPath)
	candidates, _ := args.Get(0).([]Candidate)
	return candidates, args.Error(1)
}

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) Convert(ctx context.Context, input, outputDir, name, format string) (string, error) {
	args := m.Called(ctx, input, outputDir, name, format)
	return args.String(0), args.Error(1)
}

type mockDownloader struct {
	mock.Mock
}

func (m *mockDownloader) Download(ctx context.Context, link, dir, name string) (string, error) {
	args := m.Called(ctx, link, dir, name)
	return args.String(0), args.Error(1)
}

// spyCache records every access and can be told to fail.
type spyCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	gets   int
	sets   int
	getErr error
	setErr error
}

func newSpyCache() *spyCache {
	return &spyCache{data: make(map[string][]byte)}
}

func (c *spyCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *spyCache) Set(_ context.Context, key string, value any, _ ...cache.SetOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value.([]byte)
	return nil
}

func (c *spyCache) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.sets
}

func (c *spyCache) entry(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}
