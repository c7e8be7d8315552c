package cache_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dooyeoung/medops-sub001/core/cache"
)

func TestLRU_PutGet(t *testing.T) {
	c := cache.NewLRU(cache.LRUOpts{Size: 2})

	c.Put("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = c.Get("b")
	require.False(t, ok)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.NewLRU(cache.LRUOpts{Size: 2})

	c.Put("a", 1)
	c.Put("b", 2)

	// touch "a" so "b" becomes the eviction candidate
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)

	_, ok = c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestLRU_PutUpdatesExisting(t *testing.T) {
	c := cache.NewLRU(cache.LRUOpts{Size: 2})

	c.Put("a", 1)
	c.Put("a", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestLRU_Delete(t *testing.T) {
	c := cache.NewLRU(cache.LRUOpts{Size: 2})

	c.Put("a", 1)
	c.Delete("a")

	_, ok := c.Get("a")
	require.False(t, ok)

	// deleting a missing key is fine
	c.Delete("nope")
}

func TestLRU_DefaultSize(t *testing.T) {
	c := cache.NewLRU(cache.LRUOpts{})

	for i := 0; i < 128; i++ {
		c.Put(fmt.Sprintf("k-%d", i), i)
	}
	_, ok := c.Get("k-0")
	require.True(t, ok)

	c.Put("k-128", 128)
	_, ok = c.Get("k-1")
	require.False(t, ok)
}

func TestTypedCache(t *testing.T) {
	c := cache.NewTyped[string](cache.NewLRU(cache.LRUOpts{Size: 2}))

	c.Put("a", "x")
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, "x", v)

	c.Delete("a")
	_, ok = c.Get("a")
	require.False(t, ok)
}
