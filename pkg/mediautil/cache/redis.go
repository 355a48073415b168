package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is a Backend on top of a single Redis node.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects lazily to addr, which is either host:port or a
// redis:// URL. No network I/O happens until the first command.
func NewRedisBackend(addr string) (*RedisBackend, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 2 * time.Second
	}
	return &RedisBackend{client: redis.NewClient(opts)}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(err)
	}
	return v, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return classify(r.client.Set(ctx, key, value, 0).Err())
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return classify(r.client.Ping(ctx).Err())
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// classify tags transport-level failures with ErrConnection. Server replies
// such as NOAUTH or WRONGTYPE pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, redis.ErrClosed):
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return err
}
