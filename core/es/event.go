package es

import (
	"encoding/json"
	"fmt"

	"github.com/dooyeoung/medops-sub001/internal/reflector"
)

// Registration binds a symbolic event type name to a constructor producing
// fresh instances for decoding.
type Registration struct {
	Name string
	New  func() any
}

// Event builds a Registration for event type T. The wire name is taken from
// T's EventType method when present, falling back to the Go type name.
func Event[T any]() Registration {
	name := EventTypeOf(new(T))
	return Registration{
		Name: name,
		New:  func() any { return new(T) },
	}
}

// EventTypeOf returns the symbolic wire name of an event value. Events
// without an EventType method fall back to their bare Go type name, which
// keeps wire names stable across package moves.
func EventTypeOf(ev any) string {
	if t, ok := ev.(interface{ EventType() string }); ok {
		return t.EventType()
	}
	return reflector.TypeInfoOf(ev).Type.Name()
}

// EventRegistry maps event type names to constructors so persisted envelopes
// can be decoded back into typed events. The table is fixed at construction
// and never mutated, so it is safe for any number of concurrent readers.
type EventRegistry struct {
	news map[string]func() any
}

func NewRegistry(regs ...Registration) *EventRegistry {
	news := make(map[string]func() any, len(regs))
	for _, reg := range regs {
		news[reg.Name] = reg.New
	}
	return &EventRegistry{news: news}
}

// Known reports whether eventType has a registered decoder.
func (r *EventRegistry) Known(eventType string) bool {
	_, ok := r.news[eventType]
	return ok
}

// Decode reconstructs the typed event carried by env. It fails with
// ErrUnknownEventType when env.Type was never registered - a decode must
// never silently fall back to a default shape.
func (r *EventRegistry) Decode(env Envelope) (any, error) {
	ctor, ok := r.news[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, env.Type)
	}
	ev := ctor()
	if env.Data != nil {
		if err := json.Unmarshal(env.Data, ev); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

var _ Decoder = (*EventRegistry)(nil)
