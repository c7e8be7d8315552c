package es

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// InMemoryStore is a simple, correct (optimistic) store for tests/dev.
type InMemoryStore struct {
	mu      sync.Mutex
	log     *slog.Logger
	seq     atomic.Uint64
	streams map[string][]Envelope
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		log:     slog.Default().With(slog.String("store", "memory")),
		streams: map[string][]Envelope{},
	}
}

func (s *InMemoryStore) streamKey(aggType, aggID string) string {
	return fmt.Sprintf("%s-%s", aggType, aggID)
}

func (s *InMemoryStore) Load(
	_ context.Context,
	aggType string,
	aggID string,
	opts ...StoreLoadOption,
) ([]Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loadOpts := NewStoreLoadOptions(opts...)

	events, ok := s.streams[s.streamKey(aggType, aggID)]
	if !ok {
		return nil, ErrAggregateNotFound
	}

	out := make([]Envelope, 0, len(events))
	for _, e := range events {
		if e.Version < loadOpts.StartVersion {
			continue
		}
		if e.Seq < loadOpts.StartSeq {
			continue
		}
		out = append(out, e)
	}

	return out, nil
}

func (s *InMemoryStore) Append(
	_ context.Context,
	aggType string,
	aggID string,
	expectedVersion Version,
	events []Envelope,
) (*StoreAppendResult, error) {
	if len(events) == 0 {
		return nil, ErrStoreNoEvents
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		sk         = s.streamKey(aggType, aggID)
		curStream  = s.streams[sk]
		curVersion Version
	)

	if len(curStream) > 0 {
		curVersion = curStream[len(curStream)-1].Version
	}
	if curVersion != expectedVersion {
		return nil, fmt.Errorf(
			"%w: expected version %d, got %d (agg_type=%s agg_id=%s)",
			ErrConcurrencyConflict, expectedVersion, curVersion, aggType, aggID,
		)
	}

	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	var lastSeq uint64
	appended := make([]Envelope, 0, len(events))
	for _, e := range events {
		lastSeq = s.seq.Add(1)
		e.Seq = lastSeq
		appended = append(appended, e)
	}
	s.streams[sk] = append(curStream, appended...)

	s.log.Debug(
		"append",
		slog.Uint64("last_seq", lastSeq),
		slog.Int("num_events", len(appended)),
	)

	return &StoreAppendResult{LastSeq: lastSeq}, nil
}

var _ EventStore = (*InMemoryStore)(nil)
