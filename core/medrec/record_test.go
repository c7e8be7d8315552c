package medrec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dooyeoung/medops-sub001/core/medrec"
)

var scheduledAt = time.Date(2026, 9, 14, 10, 30, 0, 0, time.UTC)

func newRecord(t *testing.T, events ...any) *medrec.Record {
	t.Helper()
	r := medrec.NewRecord("res-1")
	for _, e := range events {
		require.NoError(t, r.Apply(e))
	}
	return r
}

func created() *medrec.ReservationCreated {
	return &medrec.ReservationCreated{
		PatientID:   "p-1",
		HospitalID:  "h-1",
		ScheduledAt: scheduledAt,
	}
}

func TestRecord_CreateSetsInitialState(t *testing.T) {
	r := newRecord(t, created())

	require.Equal(t, medrec.StatusPending, r.Status)
	require.Equal(t, "p-1", r.PatientID)
	require.Equal(t, "h-1", r.HospitalID)
	require.Equal(t, scheduledAt, r.ScheduledAt)
	require.Empty(t, r.AssignedDoctorID)
}

func TestRecord_FirstEventMustBeCreation(t *testing.T) {
	for _, evt := range []any{
		&medrec.Pending{},
		&medrec.Confirmed{},
		&medrec.DoctorAssigned{DoctorID: "d-1"},
		&medrec.NoteUpdated{Note: "n"},
		&medrec.Completed{},
		&medrec.Canceled{},
	} {
		r := medrec.NewRecord("res-1")
		require.ErrorIs(t, r.Apply(evt), medrec.ErrInvalidTransition, "%T", evt)
	}
}

func TestRecord_CreateTwiceIsRejected(t *testing.T) {
	r := newRecord(t, created())
	require.ErrorIs(t, r.Apply(created()), medrec.ErrInvalidTransition)
}

func TestRecord_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		history []any
		event   any
		wantErr bool
	}{
		{"confirm pending", []any{created()}, &medrec.Confirmed{}, false},
		{"confirm twice", []any{created(), &medrec.Confirmed{}}, &medrec.Confirmed{}, true},
		{"requeue pending", []any{created()}, &medrec.Pending{Reason: "slot moved"}, false},
		{"requeue confirmed", []any{created(), &medrec.Confirmed{}}, &medrec.Pending{}, true},
		{"assign before confirm", []any{created()}, &medrec.DoctorAssigned{DoctorID: "d-1"}, true},
		{"assign confirmed", []any{created(), &medrec.Confirmed{}}, &medrec.DoctorAssigned{DoctorID: "d-1"}, false},
		{"reassign confirmed", []any{created(), &medrec.Confirmed{}, &medrec.DoctorAssigned{DoctorID: "d-1"}}, &medrec.DoctorAssigned{DoctorID: "d-2"}, false},
		{"complete pending", []any{created()}, &medrec.Completed{}, true},
		{"complete confirmed", []any{created(), &medrec.Confirmed{}}, &medrec.Completed{}, false},
		{"cancel pending", []any{created()}, &medrec.Canceled{Reason: "patient"}, false},
		{"cancel confirmed", []any{created(), &medrec.Confirmed{}}, &medrec.Canceled{}, false},
		{"cancel completed", []any{created(), &medrec.Confirmed{}, &medrec.Completed{}}, &medrec.Canceled{}, true},
		{"complete canceled", []any{created(), &medrec.Canceled{}}, &medrec.Completed{}, true},
		{"confirm canceled", []any{created(), &medrec.Canceled{}}, &medrec.Confirmed{}, true},
		{"note pending", []any{created()}, &medrec.NoteUpdated{Note: "n"}, false},
		{"note confirmed", []any{created(), &medrec.Confirmed{}}, &medrec.NoteUpdated{Note: "n"}, false},
		{"note completed", []any{created(), &medrec.Confirmed{}, &medrec.Completed{}}, &medrec.NoteUpdated{Note: "n"}, true},
		{"note canceled", []any{created(), &medrec.Canceled{}}, &medrec.NoteUpdated{Note: "n"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecord(t, tt.history...)
			err := r.Apply(tt.event)
			if tt.wantErr {
				require.ErrorIs(t, err, medrec.ErrInvalidTransition)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRecord_RequeueKeepsStatePending(t *testing.T) {
	r := newRecord(t, created(), &medrec.NoteUpdated{Note: "before"}, &medrec.Pending{Reason: "slot moved"})

	require.Equal(t, medrec.StatusPending, r.Status)
	require.Equal(t, "before", r.Note)
}

func TestRecord_DoctorAssignmentAndNotes(t *testing.T) {
	r := newRecord(t,
		created(),
		&medrec.Confirmed{},
		&medrec.DoctorAssigned{DoctorID: "d-9"},
		&medrec.NoteUpdated{Note: "bring referral letter"},
	)

	require.Equal(t, medrec.StatusConfirmed, r.Status)
	require.Equal(t, "d-9", r.AssignedDoctorID)
	require.Equal(t, "bring referral letter", r.Note)
}

func TestRecord_ReplayIsDeterministic(t *testing.T) {
	history := []any{
		created(),
		&medrec.NoteUpdated{Note: "first"},
		&medrec.Confirmed{},
		&medrec.DoctorAssigned{DoctorID: "d-1"},
		&medrec.NoteUpdated{Note: "second"},
		&medrec.Completed{},
	}

	first := newRecord(t, history...)
	second := newRecord(t, history...)
	require.Equal(t, first, second)

	require.Equal(t, medrec.StatusCompleted, first.Status)
	require.Equal(t, "d-1", first.AssignedDoctorID)
	require.Equal(t, "second", first.Note)
}

func TestRecord_TerminalStatuses(t *testing.T) {
	require.True(t, medrec.StatusCompleted.Terminal())
	require.True(t, medrec.StatusCanceled.Terminal())
	require.False(t, medrec.StatusPending.Terminal())
	require.False(t, medrec.StatusConfirmed.Terminal())
}

func TestRecord_CommandsRaiseUncommittedEvents(t *testing.T) {
	r := medrec.NewRecord("res-1")
	require.NoError(t, r.Create("p-1", "h-1", scheduledAt))
	require.NoError(t, r.Confirm())
	require.NoError(t, r.AssignDoctor("d-1"))

	uncommitted := r.Uncommitted()
	require.Len(t, uncommitted, 3)
	require.IsType(t, &medrec.ReservationCreated{}, uncommitted[0])
	require.IsType(t, &medrec.Confirmed{}, uncommitted[1])
	require.IsType(t, &medrec.DoctorAssigned{}, uncommitted[2])
}

func TestRecord_CommandValidation(t *testing.T) {
	r := medrec.NewRecord("res-1")
	require.Error(t, r.Create("", "h-1", scheduledAt))
	require.Error(t, r.Create("p-1", "", scheduledAt))

	require.NoError(t, r.Create("p-1", "h-1", scheduledAt))
	require.NoError(t, r.Confirm())
	require.Error(t, r.AssignDoctor(""))
}
