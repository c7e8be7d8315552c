package es_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dooyeoung/medops-sub001/core/es"
	"github.com/dooyeoung/medops-sub001/ports/kv"
)

func TestCreateAndApplySnapshot(t *testing.T) {
	a := &counterAgg{Total: 42}
	a.SetID("c-1")

	snap, err := es.CreateSnapshot(a)
	require.NoError(t, err)
	require.Equal(t, "counter", snap.ObjType)
	require.Equal(t, "c-1", snap.ObjID)
	require.NotEmpty(t, snap.SnapshotID)

	snapshotter := es.NewInMemorySnapshotter()
	require.NoError(t, snapshotter.SaveSnapshot(t.Context(), snap))

	restored := &counterAgg{}
	restored.SetID("c-1")
	require.NoError(t, es.ApplySnapshot(t.Context(), snapshotter, restored))
	require.Equal(t, 42, restored.Total)
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	snapshotter := es.NewInMemorySnapshotter()

	_, err := snapshotter.LoadSnapshot(t.Context(), "counter", "nope")
	require.ErrorIs(t, err, es.ErrSnapshotNotFound)
}

func TestLoadSnapshot_NoSnapshotter(t *testing.T) {
	_, err := es.LoadSnapshot(t.Context(), nil, "counter", "c-1")
	require.ErrorIs(t, err, es.ErrSnapshotterUnconfigured)
}

func TestKVSnapshotter_Roundtrip(t *testing.T) {
	snapshotter := es.NewKVSnapshotter(kv.NewMemStore())

	a := &counterAgg{Total: 7}
	a.SetID("c-1")
	snap, err := es.CreateSnapshot(a)
	require.NoError(t, err)
	require.NoError(t, snapshotter.SaveSnapshot(t.Context(), snap))

	loaded, err := snapshotter.LoadSnapshot(t.Context(), "counter", "c-1")
	require.NoError(t, err)
	require.Equal(t, snap.SnapshotID, loaded.SnapshotID)
	require.Equal(t, snap.Data, loaded.Data)

	_, err = snapshotter.LoadSnapshot(t.Context(), "counter", "nope")
	require.ErrorIs(t, err, es.ErrSnapshotNotFound)
}
