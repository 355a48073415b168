package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/ramadan8/MediaUtility/pkg/logger"
)

// Mode is the connectivity state of a ResilientCache.
type Mode int32

const (
	ModeUnprobed Mode = iota
	ModeConnected
	ModeDegraded
)

func (m Mode) String() string {
	switch m {
	case ModeUnprobed:
		return "unprobed"
	case ModeConnected:
		return "connected"
	case ModeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

const DefaultProbeTimeout = 2 * time.Second

// ResilientCache delegates to a primary Backend once a probe has shown it
// reachable, and to an in-process MemoryStore otherwise. The probe runs on the
// first Get or Set and its outcome is final.
type ResilientCache struct {
	primary      Backend
	fallback     *MemoryStore
	log          Logger
	probeTimeout time.Duration

	mu   sync.Mutex // serializes the probe
	mode atomic.Int32
}

type Option func(*ResilientCache)

func WithProbeTimeout(d time.Duration) Option {
	return func(c *ResilientCache) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

func WithLogger(log Logger) Option {
	return func(c *ResilientCache) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a cache over primary. A nil primary starts degraded.
func New(primary Backend, opts ...Option) *ResilientCache {
	c := &ResilientCache{
		primary:      primary,
		fallback:     NewMemoryStore(),
		log:          logger.GetLogger(),
		probeTimeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if primary == nil {
		c.mode.Store(int32(ModeDegraded))
	}
	return c
}

// Mode reports the current connectivity state.
func (c *ResilientCache) Mode() Mode {
	return Mode(c.mode.Load())
}

// FallbackLen is the number of entries held in process memory.
func (c *ResilientCache) FallbackLen() int {
	return c.fallback.Len()
}

func (c *ResilientCache) ensure(ctx context.Context) (Mode, error) {
	if m := c.Mode(); m != ModeUnprobed {
		return m, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if m := c.Mode(); m != ModeUnprobed {
		return m, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	err := c.primary.Ping(probeCtx)
	switch {
	case err == nil:
		c.mode.Store(int32(ModeConnected))
		c.log.Debugf("cache store reachable, using primary backend")
		return ModeConnected, nil
	case ctx.Err() != nil:
		// caller went away, leave the decision to the next caller
		return ModeUnprobed, fmt.Errorf("%w: probe: %w", ErrStoreOperation, ctx.Err())
	case errors.Is(err, ErrConnection):
		c.mode.Store(int32(ModeDegraded))
		c.log.Warnf("cache store unreachable, falling back to in-process cache: %v", err)
		return ModeDegraded, nil
	default:
		return ModeUnprobed, fmt.Errorf("%w: probe: %w", ErrStoreOperation, err)
	}
}

// Get returns the value stored under key. found is false for an absent key;
// a present empty value is found with zero-length bytes.
func (c *ResilientCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	mode, err := c.ensure(ctx)
	if err != nil {
		return nil, false, err
	}
	if mode == ModeDegraded {
		return c.fallback.Get(ctx, key)
	}

	v, found, err := c.primary.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %q: %w", ErrStoreOperation, key, err)
	}
	if found && v == nil {
		v = []byte{}
	}
	return v, found, nil
}

type setConfig struct {
	encoding string
}

type SetOption func(*setConfig)

// WithEncoding selects the text encoding applied to string values, by IANA
// name ("UTF-8", "ISO-8859-1", "Shift_JIS", ...). Byte slices are stored
// untouched.
func WithEncoding(name string) SetOption {
	return func(s *setConfig) {
		s.encoding = name
	}
}

// Set stores value under key. []byte is stored as is; strings, fmt.Stringers
// and anything else (formatted with fmt.Sprint) are encoded as text first.
func (c *ResilientCache) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	var cfg setConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := serialize(value, cfg.encoding)
	if err != nil {
		return err
	}

	mode, err := c.ensure(ctx)
	if err != nil {
		return err
	}
	if mode == ModeDegraded {
		return c.fallback.Set(ctx, key, data)
	}

	if err := c.primary.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: set %q: %w", ErrStoreOperation, key, err)
	}
	return nil
}

// Close releases the primary backend.
func (c *ResilientCache) Close() error {
	if c.primary == nil {
		return nil
	}
	return c.primary.Close()
}

func serialize(value any, encodingName string) ([]byte, error) {
	var text string
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		text = fmt.Sprint(v)
	}

	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return []byte(text), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode value as %s: %w", encodingName, err)
	}
	return out, nil
}

// lookupEncoding returns nil for UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown text encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported text encoding %q", name)
	}
	return enc, nil
}
