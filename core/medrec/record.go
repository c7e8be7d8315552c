package medrec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dooyeoung/medops-sub001/core/es"
)

// ErrInvalidTransition reports an event or command that is illegal for the
// record's current status, including a first event that is not
// ReservationCreated and any status-changing event after a terminal state.
var ErrInvalidTransition = errors.New("invalid transition")

// AggregateType is the stream type name for medical reservation records.
const AggregateType = "medical_record"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether no further events are accepted in this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Record is the medical reservation aggregate. It is never stored directly:
// its state exists only as the deterministic fold of its event stream.
type Record struct {
	es.BaseAggregate

	Status           Status    `json:"status"`
	PatientID        string    `json:"patient_id"`
	HospitalID       string    `json:"hospital_id"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	AssignedDoctorID string    `json:"assigned_doctor_id,omitempty"`
	Note             string    `json:"note,omitempty"`
}

func NewRecord(id string) *Record {
	r := &Record{}
	r.SetID(id)
	return r
}

func (r *Record) GetAggType() string { return AggregateType }

func (r *Record) Snapshot() ([]byte, error)         { return json.Marshal(r) }
func (r *Record) RestoreSnapshot(data []byte) error { return json.Unmarshal(data, r) }

var _ es.Snapshottable = (*Record)(nil)

// Apply folds one event into the record. It is a pure state transition:
// the same prior state and event always produce the same result, so replay
// is deterministic. Illegal transitions fail with ErrInvalidTransition.
func (r *Record) Apply(evt any) error {
	switch e := evt.(type) {
	case *ReservationCreated:
		if r.Status != "" {
			return r.transitionError(evt)
		}
		r.Status = StatusPending
		r.PatientID = e.PatientID
		r.HospitalID = e.HospitalID
		r.ScheduledAt = e.ScheduledAt

	case *Pending:
		// audit-only re-queue marker, no status change
		if r.Status != StatusPending {
			return r.transitionError(evt)
		}

	case *Confirmed:
		if r.Status != StatusPending {
			return r.transitionError(evt)
		}
		r.Status = StatusConfirmed

	case *DoctorAssigned:
		if r.Status != StatusConfirmed {
			return r.transitionError(evt)
		}
		r.AssignedDoctorID = e.DoctorID

	case *NoteUpdated:
		if r.Status == "" || r.Status.Terminal() {
			return r.transitionError(evt)
		}
		r.Note = e.Note

	case *Completed:
		if r.Status != StatusConfirmed {
			return r.transitionError(evt)
		}
		r.Status = StatusCompleted

	case *Canceled:
		if r.Status != StatusPending && r.Status != StatusConfirmed {
			return r.transitionError(evt)
		}
		r.Status = StatusCanceled

	default:
		return fmt.Errorf("unknown event: %T", evt)
	}
	return nil
}

func (r *Record) transitionError(evt any) error {
	status := string(r.Status)
	if status == "" {
		status = "(none)"
	}
	return fmt.Errorf(
		"%w: event %s not allowed for record %s in status %s",
		ErrInvalidTransition, es.EventTypeOf(evt), r.GetID(), status,
	)
}

// === Commands ===
//
// Commands raise exactly one event each. Transition legality lives in Apply,
// which is the single authority for both commands and replay.

// Create starts a new reservation. It must be the first command on a record.
func (r *Record) Create(patientID, hospitalID string, scheduledAt time.Time) error {
	return es.RaiseAndApply(r, &ReservationCreated{
		PatientID:   patientID,
		HospitalID:  hospitalID,
		ScheduledAt: scheduledAt,
	})
}

// Requeue records an explicit re-queue of a pending reservation.
func (r *Record) Requeue(reason string) error {
	return es.RaiseAndApply(r, &Pending{Reason: reason})
}

func (r *Record) Confirm() error {
	return es.RaiseAndApply(r, &Confirmed{})
}

func (r *Record) AssignDoctor(doctorID string) error {
	return es.RaiseAndApply(r, &DoctorAssigned{DoctorID: doctorID})
}

func (r *Record) UpdateNote(note string) error {
	return es.RaiseAndApply(r, &NoteUpdated{Note: note})
}

func (r *Record) Complete() error {
	return es.RaiseAndApply(r, &Completed{})
}

func (r *Record) Cancel(reason string) error {
	return es.RaiseAndApply(r, &Canceled{Reason: reason})
}
