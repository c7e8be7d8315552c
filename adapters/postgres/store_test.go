package postgres_test

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dooyeoung/medops-sub001/adapters/postgres"
	"github.com/dooyeoung/medops-sub001/core/es"
	"github.com/dooyeoung/medops-sub001/core/medrec"
)

func newTestStore(t *testing.T) *postgres.EventStore {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}

	pgC, err := testcontainers.Run(
		t.Context(), "postgres:16-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "medops",
			"POSTGRES_PASSWORD": "medops",
			"POSTGRES_DB":       "medops",
		}),
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgC); err != nil {
			t.Errorf("failed to terminate container: %s", err.Error())
		}
	})

	host, err := pgC.Host(t.Context())
	require.NoError(t, err)
	port, err := pgC.MappedPort(t.Context(), "5432/tcp")
	require.NoError(t, err)

	store, err := postgres.NewEventStore(t.Context(), postgres.Config{
		URL: fmt.Sprintf("postgres://medops:medops@%s:%s/medops", host, port.Port()),
		Log: slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestEventStore_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	_, err := es.AppendEvents(ctx, store, medrec.AggregateType, "res-1", 0,
		&medrec.ReservationCreated{
			PatientID:   "p-1",
			HospitalID:  "h-1",
			ScheduledAt: time.Now().UTC(),
		},
		&medrec.Confirmed{},
	)
	require.NoError(t, err)

	events, err := store.Load(ctx, medrec.AggregateType, "res-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, medrec.EventReservationCreated, events[0].Type)
	require.Equal(t, es.Version(1), events[0].Version)
	require.Equal(t, es.Version(2), events[1].Version)

	_, err = store.Load(ctx, medrec.AggregateType, "nope")
	require.ErrorIs(t, err, es.ErrAggregateNotFound)
}

func TestEventStore_LoadFromVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	_, err := es.AppendEvents(ctx, store, medrec.AggregateType, "res-1", 0,
		&medrec.ReservationCreated{PatientID: "p-1", HospitalID: "h-1"},
		&medrec.Confirmed{},
		&medrec.Completed{},
	)
	require.NoError(t, err)

	events, err := store.Load(ctx, medrec.AggregateType, "res-1", es.WithStartVersion(3))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, es.Version(3), events[0].Version)
}

func TestEventStore_RacingAppendsExactlyOneWins(t *testing.T) {
	store := newTestStore(t)

	const writers = 8
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = es.AppendEvents(t.Context(), store, medrec.AggregateType, "res-1", 0,
				&medrec.ReservationCreated{PatientID: "p-1", HospitalID: "h-1"},
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

	events, err := store.Load(t.Context(), medrec.AggregateType, "res-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestEventStore_RepositoryRoundtrip(t *testing.T) {
	store := newTestStore(t)

	repo := es.NewTypedRepository[*medrec.Record](
		slog.New(slog.DiscardHandler), store, medrec.NewRegistry(),
	)

	r := repo.NewWithID("res-1")
	require.NoError(t, r.Create("p-1", "h-1", time.Now().UTC()))
	require.NoError(t, r.Confirm())
	require.NoError(t, r.AssignDoctor("d-9"))
	require.NoError(t, repo.Save(t.Context(), r))

	loaded, err := repo.GetByID(t.Context(), "res-1")
	require.NoError(t, err)
	require.Equal(t, medrec.StatusConfirmed, loaded.Status)
	require.Equal(t, "d-9", loaded.AssignedDoctorID)
	require.Equal(t, es.Version(3), loaded.GetVersion())
}
