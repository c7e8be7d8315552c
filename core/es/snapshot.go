package es

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrSnapshotterUnconfigured = errors.New("no snapshotter configured")
	ErrSnapshotNotFound        = errors.New("snapshot not found")
)

type (
	// Snapshot captures aggregate state at a point in the stream so later
	// loads only replay the tail. Snapshots are an optimization: replay
	// with or without them yields identical state.
	Snapshot struct {
		SnapshotID string `json:"snapshot_id"`

		ObjID      string  `json:"obj_id"`
		ObjType    string  `json:"obj_type"`
		ObjVersion Version `json:"obj_version"`

		// StreamSeq is the global store sequence at snapshot time.
		StreamSeq uint64 `json:"stream_seq"`

		CreatedAt     time.Time `json:"created_at"`
		SchemaVersion int       `json:"schema_version"`
		Encoding      string    `json:"encoding"`
		Data          []byte    `json:"data"`
	}

	// Snapshottable lets an aggregate control its own snapshot encoding.
	// Aggregates without it are JSON-marshaled as a whole.
	Snapshottable interface {
		Snapshot() (data []byte, err error)
		RestoreSnapshot(data []byte) error
	}

	Snapshotter interface {
		SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
		LoadSnapshot(ctx context.Context, objType, objID string) (*Snapshot, error)
	}
)

func (s *Snapshot) logAttrs() slog.Attr {
	return slog.Group(
		"snapshot",
		slog.String("id", s.SnapshotID),
		slog.String("obj_type", s.ObjType),
		slog.String("obj_id", s.ObjID),
		s.ObjVersion.SlogAttrWithKey("obj_version"),
		slog.Uint64("seq", s.StreamSeq),
		slog.Int("size", len(s.Data)),
	)
}

func LoadSnapshot(ctx context.Context, snapshotter Snapshotter, aggType, aggID string) (*Snapshot, error) {
	if snapshotter == nil {
		return nil, ErrSnapshotterUnconfigured
	}
	return snapshotter.LoadSnapshot(ctx, aggType, aggID)
}

// ApplySnapshot restores agg from the most recent snapshot, setting its
// version and sequence to the snapshot's.
func ApplySnapshot(ctx context.Context, snapshotter Snapshotter, agg Aggregate) error {
	snapshot, err := LoadSnapshot(ctx, snapshotter, agg.GetAggType(), agg.GetID())
	if err != nil {
		return err
	}
	if sa, ok := any(agg).(Snapshottable); ok {
		err = sa.RestoreSnapshot(snapshot.Data)
	} else {
		err = json.Unmarshal(snapshot.Data, agg)
	}
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	agg.setVersion(snapshot.ObjVersion)
	agg.setSeq(snapshot.StreamSeq)
	return nil
}

func CreateSnapshot(agg Aggregate) (*Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if sa, ok := any(agg).(Snapshottable); ok {
		data, err = sa.Snapshot()
	} else {
		data, err = json.Marshal(agg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s/%s: %w", agg.GetAggType(), agg.GetID(), err)
	}
	return &Snapshot{
		SnapshotID:    gonanoid.Must(),
		StreamSeq:     agg.GetSeq(),
		ObjID:         agg.GetID(),
		ObjType:       agg.GetAggType(),
		ObjVersion:    agg.GetVersion(),
		CreatedAt:     time.Now(),
		Encoding:      "json",
		Data:          data,
		SchemaVersion: 1,
	}, nil
}

// === In-Memory Snapshotter ===

type InMemorySnapshotter struct {
	mu        sync.Mutex
	snapshots map[string]*Snapshot
}

func NewInMemorySnapshotter() *InMemorySnapshotter {
	return &InMemorySnapshotter{snapshots: map[string]*Snapshot{}}
}

func snapshotKey(objType, objID string) string {
	return fmt.Sprintf("%s-%s", objType, objID)
}

func (i *InMemorySnapshotter) SaveSnapshot(_ context.Context, snapshot *Snapshot) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.snapshots[snapshotKey(snapshot.ObjType, snapshot.ObjID)] = snapshot
	return nil
}

func (i *InMemorySnapshotter) LoadSnapshot(_ context.Context, objType, objID string) (*Snapshot, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	s, ok := i.snapshots[snapshotKey(objType, objID)]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return s, nil
}

var _ Snapshotter = (*InMemorySnapshotter)(nil)
