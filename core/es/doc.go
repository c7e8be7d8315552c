// Package es provides the event sourcing core: envelopes, the event type
// registry, the append-only event store contract, and the repository that
// rehydrates aggregates by replaying their event streams.
//
// # Aggregates
//
// An aggregate embeds [BaseAggregate] and implements Apply to fold events
// into state. Commands raise events via [RaiseAndApply]:
//
//	type Record struct {
//	    es.BaseAggregate
//	    Status string
//	}
//
//	func (r *Record) Confirm() error {
//	    return es.RaiseAndApply(r, &Confirmed{})
//	}
//
// # Event registry
//
// Persisted envelopes are self-describing: each carries a symbolic event type
// name. The [EventRegistry] maps those names back to decoders. It is built
// once at startup and immutable afterwards, so concurrent decoding needs no
// locking:
//
//	registry := es.NewRegistry(
//	    es.Event[Confirmed](),
//	    es.Event[Canceled](),
//	)
//
// # Stores and concurrency
//
// [EventStore] implementations provide per-aggregate ordered reads and a
// compare-and-append write: an append succeeds only when the stream head
// matches the caller's expected [Version], otherwise it fails with
// [ErrConcurrencyConflict] and writes nothing. This is the only
// synchronization point; there are no locks around reads.
//
// [NewInMemoryStore] is the reference implementation for tests and dev.
// Durable implementations live under adapters (NATS JetStream, PostgreSQL).
//
// # Snapshots
//
// Replays can be shortened with snapshots. Snapshots are a pure cache: a load
// with or without them yields identical state. See [Snapshotter],
// [WithSnapshot] and [NewCachedSnapshotter].
package es
