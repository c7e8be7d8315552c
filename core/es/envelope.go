package es

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope wraps an event with the metadata needed to persist and replay it.
// It is the unit of storage in the EventStore.
type Envelope struct {
	// ID is the unique identifier of this envelope, used for publish dedupe.
	ID string `json:"id"`
	// Seq is the global sequence number assigned by the store on append.
	Seq uint64 `json:"seq"`
	// Version is the per-aggregate stream sequence number (1, 2, 3, ...).
	Version Version `json:"version"`
	// AggregateType identifies the kind of aggregate this event belongs to.
	AggregateType string `json:"aggregate"`
	// AggregateID identifies the aggregate instance.
	AggregateID string `json:"aggregate_id"`
	// Type is the symbolic event type name used for decode routing.
	Type string `json:"type"`
	// OccurredAt is when the event was raised.
	OccurredAt time.Time `json:"occurred_at"`
	// Data is the JSON-encoded event payload.
	Data json.RawMessage `json:"data"`
}

func (e Envelope) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("envelope id is empty")
	}
	if e.AggregateType == "" {
		return fmt.Errorf("envelope aggregate type is empty")
	}
	if e.AggregateID == "" {
		return fmt.Errorf("envelope aggregate id is empty")
	}
	if e.Type == "" {
		return fmt.Errorf("envelope type is empty")
	}
	if e.Version == 0 {
		return fmt.Errorf("envelope version is zero")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("envelope occurred at is zero")
	}
	return nil
}

// Decoder turns a persisted envelope back into a typed event.
type Decoder interface {
	Decode(e Envelope) (any, error)
}
