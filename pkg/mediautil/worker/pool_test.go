package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoReturnsTaskError(t *testing.T) {
	p := New(2)
	boom := errors.New("boom")

	assert.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, p.Do(context.Background(), func(context.Context) error { return boom }), boom)
}

func TestDoBoundsConcurrency(t *testing.T) {
	p := New(3, WithQueueSize(100))

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 0, p.Stats().Running)
}

func TestDoRejectsWhenQueueFull(t *testing.T) {
	p := New(1, WithQueueSize(0))
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := p.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolSaturated)
	close(release)
}

func TestDoHonoursCallerContextWhileWaiting(t *testing.T) {
	p := New(1, WithQueueSize(1))
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, p.Stats().Waiting)
	close(release)
}

func TestShutdownDrainsAndRejects(t *testing.T) {
	p := New(2)
	started := make(chan struct{})
	var finished atomic.Bool

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return nil
		})
	}()
	<-started

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, finished.Load())
	assert.True(t, p.Stats().Closed)
	assert.ErrorIs(t, p.Do(context.Background(), func(context.Context) error { return nil }), ErrPoolClosed)
}

func TestShutdownTimesOut(t *testing.T) {
	p := New(1)
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}

func TestStopNowCancelsRunningTasks(t *testing.T) {
	p := New(1)
	started := make(chan struct{})
	result := make(chan error, 1)

	go func() {
		result <- p.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	<-started

	p.StopNow()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task was not canceled")
	}
}
