//go:build unit

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go-forum-app/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(config.CacheConfig{FilePath: filepath.Join(t.TempDir(), "cache.db"), TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	v, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Delete(ctx, "k"))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))

	now = now.Add(2 * time.Second)
	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v, "expired items are misses")

	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Millisecond))
	now = now.Add(time.Second)
	n, err := c.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	v, err = c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func TestCache_Ints(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := UnreadKey(42)
	assert.Equal(t, "unread:42", key)

	_, ok, err := c.GetInt(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetInt(ctx, key, 7))
	n, ok, err := c.GetInt(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	require.NoError(t, c.Set(ctx, key, []byte("seven"), time.Minute))
	_, ok, err = c.GetInt(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "garbage is treated as a miss")
}
