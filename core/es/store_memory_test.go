package es_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dooyeoung/medops-sub001/core/es"
)

type counterIncremented struct {
	By int `json:"by"`
}

func (counterIncremented) EventType() string { return "CounterIncremented" }

func TestInMemoryStore_AppendAndLoad(t *testing.T) {
	store := es.NewInMemoryStore()

	res, err := es.AppendEvents(t.Context(), store, "counter", "c-1", 0,
		&counterIncremented{By: 1},
		&counterIncremented{By: 2},
	)
	require.NoError(t, err)
	require.Equal(t, uint64(2), res.LastSeq)

	events, err := store.Load(t.Context(), "counter", "c-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, es.Version(1), events[0].Version)
	require.Equal(t, es.Version(2), events[1].Version)
	require.Equal(t, "CounterIncremented", events[0].Type)
}

func TestInMemoryStore_LoadUnknownAggregate(t *testing.T) {
	store := es.NewInMemoryStore()

	_, err := store.Load(t.Context(), "counter", "nope")
	require.ErrorIs(t, err, es.ErrAggregateNotFound)
}

func TestInMemoryStore_LoadFromVersion(t *testing.T) {
	store := es.NewInMemoryStore()

	_, err := es.AppendEvents(t.Context(), store, "counter", "c-1", 0,
		&counterIncremented{By: 1},
		&counterIncremented{By: 2},
		&counterIncremented{By: 3},
	)
	require.NoError(t, err)

	events, err := store.Load(t.Context(), "counter", "c-1", es.WithStartVersion(3))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, es.Version(3), events[0].Version)
}

func TestInMemoryStore_AppendEmpty(t *testing.T) {
	store := es.NewInMemoryStore()

	_, err := store.Append(t.Context(), "counter", "c-1", 0, nil)
	require.ErrorIs(t, err, es.ErrStoreNoEvents)
}

func TestInMemoryStore_StaleExpectedVersion(t *testing.T) {
	store := es.NewInMemoryStore()

	_, err := es.AppendEvents(t.Context(), store, "counter", "c-1", 0, &counterIncremented{By: 1})
	require.NoError(t, err)

	// same expected version again must lose
	_, err = es.AppendEvents(t.Context(), store, "counter", "c-1", 0, &counterIncremented{By: 1})
	require.ErrorIs(t, err, es.ErrConcurrencyConflict)

	events, err := store.Load(t.Context(), "counter", "c-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestInMemoryStore_RacingAppendsExactlyOneWins(t *testing.T) {
	store := es.NewInMemoryStore()

	const writers = 16
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = es.AppendEvents(t.Context(), store, "counter", "c-1", 0,
				&counterIncremented{By: i},
			)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, es.ErrConcurrencyConflict)
		}
	}
	require.Equal(t, 1, won)

	events, err := store.Load(t.Context(), "counter", "c-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestInMemoryStore_IndependentStreams(t *testing.T) {
	store := es.NewInMemoryStore()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("c-%d", i)
		_, err := es.AppendEvents(t.Context(), store, "counter", id, 0, &counterIncremented{By: i})
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		events, err := store.Load(t.Context(), "counter", fmt.Sprintf("c-%d", i))
		require.NoError(t, err)
		require.Len(t, events, 1)
	}
}
