package es

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrStoreNoEvents = errors.New("no events to store")
)

// StoreLoadOptions narrows a Load to the tail of a stream, used when a
// snapshot already covers the head.
type StoreLoadOptions struct {
	// StartVersion is the minimum per-aggregate version to include.
	StartVersion Version
	// StartSeq is the minimum global sequence to include.
	StartSeq uint64
}

type StoreLoadOption func(*StoreLoadOptions)

func NewStoreLoadOptions(opts ...StoreLoadOption) StoreLoadOptions {
	var options StoreLoadOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithStartVersion(v Version) StoreLoadOption {
	return func(o *StoreLoadOptions) { o.StartVersion = v }
}

func WithStartSeq(seq uint64) StoreLoadOption {
	return func(o *StoreLoadOptions) { o.StartSeq = seq }
}

type StoreAppendResult struct {
	LastSeq uint64
}

// EventStore stores and loads envelopes per aggregate stream.
//
// Append is the compare-and-append primitive: it appends only when the
// stream's current head version equals expectedVersion, failing with
// ErrConcurrencyConflict otherwise and writing nothing. Two racing appends
// with the same expected version result in exactly one success. Appends for
// different aggregates never block each other.
//
// Load returns the stream ordered by version ascending, from 1 through the
// current head, failing with ErrAggregateNotFound when no events exist.
type EventStore interface {
	Load(ctx context.Context, aggType string, aggID string, opts ...StoreLoadOption) ([]Envelope, error)
	Append(ctx context.Context, aggType string, aggID string, expectedVersion Version, events []Envelope) (*StoreAppendResult, error)
}

// AppendEvents wraps raw events into envelopes and appends them with the
// given expected version. Versions are assigned sequentially from expect+1.
func AppendEvents(
	ctx context.Context,
	store EventStore,
	aggType string,
	aggID string,
	expect Version,
	events ...any,
) (*StoreAppendResult, error) {
	if len(events) == 0 {
		return nil, ErrStoreNoEvents
	}
	envelopes := make([]Envelope, 0, len(events))
	for i, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, Envelope{
			ID:            gonanoid.Must(),
			Type:          EventTypeOf(ev),
			AggregateID:   aggID,
			AggregateType: aggType,
			Data:          data,
			OccurredAt:    time.Now(),
			Version:       expect + Version(i+1),
		})
	}
	return store.Append(ctx, aggType, aggID, expect, envelopes)
}
