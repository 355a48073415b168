// Package worker bounds how many blocking media jobs (ffmpeg, downloads) run
// at once.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var (
	ErrPoolClosed    = errors.New("worker pool closed")
	ErrPoolSaturated = errors.New("worker pool saturated")
)

// Task is a unit of blocking work. It must return promptly once ctx is done.
type Task func(ctx context.Context) error

// Pool runs at most Size tasks concurrently. Up to QueueSize further callers
// wait for a slot; beyond that Do fails fast with ErrPoolSaturated.
type Pool struct {
	size      int64
	queueSize int64
	sem       *semaphore.Weighted

	running atomic.Int64
	waiting atomic.Int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	stopCtx context.Context
	stop    context.CancelFunc
}

type Option func(*Pool)

// WithQueueSize bounds the number of callers waiting for a slot. Zero means
// no waiting: every call beyond Size is rejected.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.queueSize = int64(n)
		}
	}
}

// New creates a pool with size slots. size <= 0 uses the number of CPUs.
// The default queue holds four callers per slot.
func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		size:      int64(size),
		queueSize: int64(size) * 4,
		sem:       semaphore.NewWeighted(int64(size)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stopCtx, p.stop = context.WithCancel(context.Background())
	return p
}

// Do runs task once a slot is free and returns its error. The task's context
// is canceled when ctx is, or when the pool is stopped with StopNow.
func (p *Pool) Do(ctx context.Context, task Task) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()
	defer p.wg.Done()

	if !p.sem.TryAcquire(1) {
		if p.waiting.Add(1) > p.queueSize {
			p.waiting.Add(-1)
			return ErrPoolSaturated
		}
		err := p.sem.Acquire(ctx, 1)
		p.waiting.Add(-1)
		if err != nil {
			return err
		}
	}
	defer p.sem.Release(1)

	p.running.Add(1)
	defer p.running.Add(-1)

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := context.AfterFunc(p.stopCtx, cancel)
	defer stopWatch()

	return task(taskCtx)
}

// Stats is a point-in-time view of pool usage.
type Stats struct {
	Size      int  `json:"size"`
	QueueSize int  `json:"queue_size"`
	Running   int  `json:"running"`
	Waiting   int  `json:"waiting"`
	Closed    bool `json:"closed"`
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	return Stats{
		Size:      int(p.size),
		QueueSize: int(p.queueSize),
		Running:   int(p.running.Load()),
		Waiting:   int(p.waiting.Load()),
		Closed:    closed,
	}
}

// Shutdown stops accepting work and waits for in-flight tasks, or for ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.stop()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopNow stops accepting work and cancels every running task.
func (p *Pool) StopNow() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.stop()
}
