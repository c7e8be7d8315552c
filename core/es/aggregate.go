package es

import (
	"errors"
	"fmt"
)

var (
	ErrAggregateNotFound   = errors.New("aggregate not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrUnknownEventType    = errors.New("unknown event type")
)

// Applier is implemented by types that fold events into state.
type Applier interface {
	Apply(event any) error
}

// Aggregate is the contract for event-sourced domain objects.
//
// An aggregate maintains:
//   - Identity: type and ID that name the aggregate's stream
//   - Version: count of events applied, used for optimistic concurrency
//   - Seq: global store sequence of the last applied event
//   - Uncommitted events: raised but not yet persisted
//
// The lifecycle is: rehydrate via Repository.Load (replay), execute domain
// logic that raises events, persist via Repository.Save.
type Aggregate interface {
	// GetAggType returns the aggregate type name used for stream identification.
	GetAggType() string
	// GetID returns the unique identifier of this aggregate instance.
	GetID() string
	// SetID sets the aggregate ID.
	SetID(string)

	// GetVersion returns the current version (number of events applied).
	GetVersion() Version
	setVersion(Version)

	// GetSeq returns the global stream sequence of the last applied event.
	GetSeq() uint64
	setSeq(uint64)

	// Raise records an event as uncommitted without applying it.
	Raise(event any)
	// Apply updates the aggregate state from an event.
	Apply(event any) error

	// Uncommitted returns a copy of events raised but not yet persisted.
	Uncommitted() []any
	// ClearUncommitted removes all uncommitted events after a successful save.
	ClearUncommitted()
}

// BaseAggregate is an embeddable helper tracking identity, version and
// uncommitted events. Domain aggregates embed it and implement GetAggType
// and Apply themselves.
type BaseAggregate struct {
	id          string
	version     Version
	seq         uint64
	uncommitted []any
}

func (b *BaseAggregate) GetID() string        { return b.id }
func (b *BaseAggregate) SetID(id string)      { b.id = id }
func (b *BaseAggregate) GetVersion() Version  { return b.version }
func (b *BaseAggregate) setVersion(v Version) { b.version = v }
func (b *BaseAggregate) GetSeq() uint64       { return b.seq }
func (b *BaseAggregate) setSeq(s uint64)      { b.seq = s }

func (b *BaseAggregate) Raise(event any)   { b.uncommitted = append(b.uncommitted, event) }
func (b *BaseAggregate) ClearUncommitted() { b.uncommitted = nil }
func (b *BaseAggregate) Uncommitted() []any {
	out := make([]any, len(b.uncommitted))
	copy(out, b.uncommitted)
	return out
}

type raiseApplier interface {
	Raise(event any)
	Apply(event any) error
}

// RaiseAndApply validates the events, records them as uncommitted and applies
// them to mutate state. The first failing event aborts the whole batch.
func RaiseAndApply(a raiseApplier, events ...any) (err error) {
	if len(events) == 0 {
		return
	}

	for _, e := range events {
		if ev, ok := e.(interface{ Validate() error }); ok {
			if err = ev.Validate(); err != nil {
				return fmt.Errorf("invalid event %T: %w", ev, err)
			}
		}
	}

	for _, e := range events {
		a.Raise(e)
		if err = a.Apply(e); err != nil {
			return
		}
	}
	return
}
