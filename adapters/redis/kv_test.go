package redis_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisadapter "github.com/dooyeoung/medops-sub001/adapters/redis"
	"github.com/dooyeoung/medops-sub001/ports/kv"
)

func newTestStore(t *testing.T) *redisadapter.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}

	redisC, err := testcontainers.Run(
		t.Context(), "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisC); err != nil {
			t.Errorf("failed to terminate container: %s", err.Error())
		}
	})

	host, err := redisC.Host(t.Context())
	require.NoError(t, err)
	port, err := redisC.MappedPort(t.Context(), "6379/tcp")
	require.NoError(t, err)

	store, err := redisadapter.NewStore(t.Context(), redisadapter.Config{
		Addr:      fmt.Sprintf("%s:%s", host, port.Port()),
		KeyPrefix: "test:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_PutGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, "k", kv.Entry{Data: []byte("v")}, kv.PutOptions{}))

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), entry.Data)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_TTL(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, "k", kv.Entry{Data: []byte("v")}, kv.PutOptions{TTL: time.Second}))

	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	time.Sleep(1500 * time.Millisecond)
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(t.Context(), "nope")
	require.ErrorIs(t, err, kv.ErrNotFound)
}
