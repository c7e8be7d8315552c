package kv_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dooyeoung/medops-sub001/ports/kv"
)

func TestMemStore_PutGetDelete(t *testing.T) {
	store := kv.NewMemStore()
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, "k", kv.Entry{Data: []byte("v")}, kv.PutOptions{}))

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), entry.Data)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestMemStore_GetUnknown(t *testing.T) {
	store := kv.NewMemStore()

	_, err := store.Get(t.Context(), "nope")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestMemStore_TTL(t *testing.T) {
	store := kv.NewMemStore()
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, "k", kv.Entry{Data: []byte("v")}, kv.PutOptions{TTL: 10 * time.Millisecond}))

	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

type payload struct {
	Name string `json:"name"`
}

func TestTypedHelpers(t *testing.T) {
	store := kv.NewMemStore()
	ctx := t.Context()

	require.NoError(t, kv.Put(ctx, store, "k", payload{Name: "x"}, kv.PutOptions{}))

	got, err := kv.Get[payload](ctx, store, "k")
	require.NoError(t, err)
	require.Equal(t, "x", got.Name)
}
