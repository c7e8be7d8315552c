package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/dooyeoung/medops-sub001/core/es"
)

// Snapshotter stores aggregate snapshots in a JetStream key-value bucket,
// one entry per aggregate, latest snapshot wins.
type Snapshotter struct {
	kvb   jetstream.KeyValue
	store *KvStore
}

func NewSnapshotter(cfg KvConfig) (*Snapshotter, error) {
	store, err := NewKvStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Snapshotter{kvb: store.kvb, store: store}, nil
}

// Close releases the underlying connection lease.
func (s *Snapshotter) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

func snapshotKey(objType, objID string) string {
	return encodeKey(objType + "-" + objID)
}

func (s *Snapshotter) SaveSnapshot(ctx context.Context, snapshot *es.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = s.kvb.Put(ctx, snapshotKey(snapshot.ObjType, snapshot.ObjID), data)
	return err
}

func (s *Snapshotter) LoadSnapshot(ctx context.Context, objType, objID string) (*es.Snapshot, error) {
	v, err := s.kvb.Get(ctx, snapshotKey(objType, objID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, es.ErrSnapshotNotFound
		}
		return nil, err
	}
	snapshot := &es.Snapshot{}
	if err := json.Unmarshal(v.Value(), snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

var _ es.Snapshotter = (*Snapshotter)(nil)
