package medrec

import (
	"errors"
	"time"

	"github.com/dooyeoung/medops-sub001/core/es"
)

// Wire names of the seven record events. The vocabulary is closed: a decode
// of any other name fails with es.ErrUnknownEventType.
const (
	EventReservationCreated = "ReservationCreated"
	EventPending            = "Pending"
	EventConfirmed          = "Confirmed"
	EventDoctorAssigned     = "DoctorAssigned"
	EventNoteUpdated        = "NoteUpdated"
	EventCompleted          = "Completed"
	EventCanceled           = "Canceled"
)

type (
	// ReservationCreated is always the first event of a record stream.
	ReservationCreated struct {
		PatientID   string    `json:"patient_id"`
		HospitalID  string    `json:"hospital_id"`
		ScheduledAt time.Time `json:"scheduled_at"`
	}

	// Pending marks an explicit re-queue of a reservation that is already
	// pending. It is recorded for audit and never changes status.
	Pending struct {
		Reason string `json:"reason,omitempty"`
	}

	Confirmed struct{}

	DoctorAssigned struct {
		DoctorID string `json:"doctor_id"`
	}

	// NoteUpdated replaces the record's note (last write wins). It is
	// orthogonal to status.
	NoteUpdated struct {
		Note string `json:"note"`
	}

	Completed struct{}

	Canceled struct {
		Reason string `json:"reason,omitempty"`
	}
)

func (ReservationCreated) EventType() string { return EventReservationCreated }
func (Pending) EventType() string            { return EventPending }
func (Confirmed) EventType() string          { return EventConfirmed }
func (DoctorAssigned) EventType() string     { return EventDoctorAssigned }
func (NoteUpdated) EventType() string        { return EventNoteUpdated }
func (Completed) EventType() string          { return EventCompleted }
func (Canceled) EventType() string           { return EventCanceled }

func (e ReservationCreated) Validate() error {
	if e.PatientID == "" {
		return errors.New("patient id is required")
	}
	if e.HospitalID == "" {
		return errors.New("hospital id is required")
	}
	return nil
}

func (e DoctorAssigned) Validate() error {
	if e.DoctorID == "" {
		return errors.New("doctor id is required")
	}
	return nil
}

// Events returns the registrations for the full event vocabulary.
func Events() []es.Registration {
	return []es.Registration{
		es.Event[ReservationCreated](),
		es.Event[Pending](),
		es.Event[Confirmed](),
		es.Event[DoctorAssigned](),
		es.Event[NoteUpdated](),
		es.Event[Completed](),
		es.Event[Canceled](),
	}
}

// NewRegistry builds an immutable registry covering the record vocabulary.
func NewRegistry() *es.EventRegistry {
	return es.NewRegistry(Events()...)
}
