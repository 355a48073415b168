// Package cache stores recognition outcomes keyed by (extractor, item, offset).
//
// ResilientCache fronts a networked Backend and falls back to a process-local
// MemoryStore when the backend cannot be reached on first contact. The
// decision is taken once per ResilientCache and never revisited.
package cache

import (
	"context"
	"errors"
)

var (
	// ErrConnection marks backend failures caused by the store being
	// unreachable. Only meaningful during the first probe.
	ErrConnection = errors.New("cache store unreachable")

	// ErrStoreOperation is returned when a connected store fails an
	// operation, or when the first probe fails for a reason other than
	// connectivity.
	ErrStoreOperation = errors.New("cache store operation failed")

	// ErrCorruptEntry is returned by Decode for bytes that are not a
	// recognition record.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

// Backend is a byte-oriented key/value store.
// Get reports found=false for an absent key. Implementations wrap
// connectivity failures with ErrConnection.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}
