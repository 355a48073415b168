package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBackendRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	b, err := NewRedisBackend(mr.Addr())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Ping(ctx))

	_, found, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, b.Set(ctx, "acme-42-30", []byte(`{"title":"X"}`)))
	v, found, err := b.Get(ctx, "acme-42-30")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"title":"X"}`, string(v))

	stored, err := mr.Get("acme-42-30")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"X"}`, stored)
}

func TestRedisBackendURL(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := NewRedisBackend("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer b.Close()
	assert.NoError(t, b.Ping(context.Background()))

	_, err = NewRedisBackend("redis://localhost:notaport")
	assert.Error(t, err)
}

func TestRedisBackendUnreachableIsConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	b, err := NewRedisBackend(addr)
	require.NoError(t, err)
	defer b.Close()

	assert.ErrorIs(t, b.Ping(context.Background()), ErrConnection)
}

func TestResilientCacheOverRedis(t *testing.T) {
	ctx := context.Background()

	t.Run("degrades when redis is down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		b, err := NewRedisBackend(addr)
		require.NoError(t, err)
		c := newTestCache(b)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", EncodeEmpty()))
		assert.Equal(t, ModeDegraded, c.Mode())
	})

	t.Run("surfaces failures after connecting", func(t *testing.T) {
		mr := miniredis.RunT(t)

		b, err := NewRedisBackend(mr.Addr())
		require.NoError(t, err)
		c := newTestCache(b)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v"))
		require.Equal(t, ModeConnected, c.Mode())

		mr.Close()
		_, _, err = c.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrStoreOperation)
		assert.Equal(t, ModeConnected, c.Mode())
	})
}
