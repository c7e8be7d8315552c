package es

import (
	"context"
	"errors"

	"github.com/dooyeoung/medops-sub001/ports/kv"
)

// KVSnapshotter stores snapshots through the kv port, one entry per
// aggregate, latest snapshot wins. Any kv backend works (memory, Redis,
// NATS KV).
type KVSnapshotter struct {
	store kv.Store
}

func NewKVSnapshotter(store kv.Store) *KVSnapshotter {
	return &KVSnapshotter{store: store}
}

func (s *KVSnapshotter) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	return kv.Put(ctx, s.store, snapshotKey(snapshot.ObjType, snapshot.ObjID), snapshot, kv.PutOptions{})
}

func (s *KVSnapshotter) LoadSnapshot(ctx context.Context, objType, objID string) (*Snapshot, error) {
	snapshot, err := kv.Get[*Snapshot](ctx, s.store, snapshotKey(objType, objID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

var _ Snapshotter = (*KVSnapshotter)(nil)
