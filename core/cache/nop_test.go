package cache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dooyeoung/medops-sub001/core/cache"
)

func TestNop_StoresNothing(t *testing.T) {
	c := cache.NewNop()

	c.Put("a", 1)
	_, ok := c.Get("a")
	require.False(t, ok)

	c.Delete("a")
	_, ok = c.Get("a")
	require.False(t, ok)
}

func TestNop_AsTypedCache(t *testing.T) {
	c := cache.NewTyped[int](cache.NewNop())

	c.Put("a", 1)
	_, ok := c.Get("a")
	require.False(t, ok)
}
