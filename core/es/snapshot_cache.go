package es

import (
	"context"

	"github.com/dooyeoung/medops-sub001/core/cache"
)

// cachedSnapshotter fronts a Snapshotter with an in-process LRU. With a nil
// inner snapshotter it degrades to a pure process-local snapshot cache.
type cachedSnapshotter struct {
	inner   Snapshotter
	cache   cache.TypedCache[*Snapshot]
	metrics ESMetrics
}

// NewCachedSnapshotter wraps inner with an LRU of the given size. inner may
// be nil, in which case snapshots live only in process memory.
func NewCachedSnapshotter(inner Snapshotter, size int) Snapshotter {
	return newCachedSnapshotter(inner, size, NopESMetrics())
}

func newCachedSnapshotter(inner Snapshotter, size int, m ESMetrics) Snapshotter {
	return &cachedSnapshotter{
		inner:   inner,
		cache:   cache.NewTyped[*Snapshot](cache.NewLRU(cache.LRUOpts{Size: size})),
		metrics: m,
	}
}

func (c *cachedSnapshotter) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if c.inner != nil {
		if err := c.inner.SaveSnapshot(ctx, snapshot); err != nil {
			return err
		}
	}
	c.cache.Put(snapshotKey(snapshot.ObjType, snapshot.ObjID), snapshot)
	return nil
}

func (c *cachedSnapshotter) LoadSnapshot(ctx context.Context, objType, objID string) (*Snapshot, error) {
	key := snapshotKey(objType, objID)
	if s, ok := c.cache.Get(key); ok {
		c.metrics.CacheHit(objType)
		return s, nil
	}
	c.metrics.CacheMiss(objType)

	if c.inner == nil {
		return nil, ErrSnapshotNotFound
	}
	s, err := c.inner.LoadSnapshot(ctx, objType, objID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, s)
	return s, nil
}

var _ Snapshotter = (*cachedSnapshotter)(nil)
