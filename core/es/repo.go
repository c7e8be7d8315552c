package es

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type (
	repoOptions struct {
		snapshotter Snapshotter
		metrics     ESMetrics
		cacheSize   int
	}
	RepositoryOption interface{ applyToRepository(*repoOptions) }

	// Repository rehydrates aggregates by replaying their streams and
	// persists new events with optimistic concurrency.
	Repository interface {
		Load(ctx context.Context, agg Aggregate, opts ...LoadOption) error
		Save(ctx context.Context, agg Aggregate, opts ...SaveOption) error
		CreateSnapshot(ctx context.Context, agg Aggregate) (*Snapshot, error)
	}
)

type SnapshotterOption struct{ v Snapshotter }

func WithSnapshotter(s Snapshotter) SnapshotterOption           { return SnapshotterOption{v: s} }
func (o SnapshotterOption) applyToRepository(opts *repoOptions) { opts.snapshotter = o.v }

// SnapshotCacheOption fronts the snapshotter with a process-local LRU.
type SnapshotCacheOption struct{ size int }

func WithSnapshotCache(size int) SnapshotCacheOption              { return SnapshotCacheOption{size: size} }
func (o SnapshotCacheOption) applyToRepository(opts *repoOptions) { opts.cacheSize = o.size }

type ESMetricsOption struct{ m ESMetrics }

func WithMetrics(m ESMetrics) ESMetricsOption              { return ESMetricsOption{m: m} }
func (o ESMetricsOption) applyToRepository(r *repoOptions) { r.metrics = o.m }

type (
	repoLoadOptions struct{ snapshot bool }
	repoSaveOptions struct{ snapshot bool }
	LoadOption      interface{ applyToLoadOptions(*repoLoadOptions) }
	SaveOption      interface{ applyToSaveOptions(*repoSaveOptions) }
)

// SnapshotOption enables snapshot use on load and snapshot creation on save.
type SnapshotOption struct{ enabled bool }

func WithSnapshot(enabled bool) SnapshotOption                 { return SnapshotOption{enabled: enabled} }
func (o SnapshotOption) applyToLoadOptions(l *repoLoadOptions) { l.snapshot = o.enabled }
func (o SnapshotOption) applyToSaveOptions(s *repoSaveOptions) { s.snapshot = o.enabled }

type repository struct {
	log         *slog.Logger
	store       EventStore
	registry    *EventRegistry
	snapshotter Snapshotter
	metrics     ESMetrics
}

func NewRepository(
	log *slog.Logger,
	store EventStore,
	registry *EventRegistry,
	opts ...RepositoryOption,
) Repository {
	options := repoOptions{metrics: NopESMetrics()}
	for _, opt := range opts {
		opt.applyToRepository(&options)
	}

	snapshotter := options.snapshotter
	if options.cacheSize > 0 {
		snapshotter = newCachedSnapshotter(snapshotter, options.cacheSize, options.metrics)
	}

	return &repository{
		log:         log.With(slog.String("repo", fmt.Sprintf("%T", store))),
		store:       store,
		registry:    registry,
		snapshotter: snapshotter,
		metrics:     options.metrics,
	}
}

// Load rehydrates agg by replaying its stream. Registry and store errors
// propagate unmodified; callers decide retry-vs-surface.
func (r *repository) Load(ctx context.Context, agg Aggregate, opts ...LoadOption) error {
	aggType := agg.GetAggType()
	if aggType == "" {
		return errors.New("aggregate type is empty")
	}
	aggID := agg.GetID()
	if aggID == "" {
		return errors.New("aggregate id is empty")
	}
	if len(agg.Uncommitted()) != 0 {
		return errors.New("aggregate has uncommitted events")
	}

	defer r.metrics.RepoLoadDuration(aggType).ObserveDuration()

	loadOptions := repoLoadOptions{}
	for _, opt := range opts {
		opt.applyToLoadOptions(&loadOptions)
	}

	log := r.log.With(slog.Group(
		"agg",
		slog.String("type", aggType),
		slog.String("id", aggID),
	))

	if loadOptions.snapshot {
		if r.snapshotter == nil {
			return ErrSnapshotterUnconfigured
		}
		t := r.metrics.SnapshotLoadDuration(aggType)
		err := ApplySnapshot(ctx, r.snapshotter, agg)
		t.ObserveDuration()
		if err != nil {
			if !errors.Is(err, ErrSnapshotNotFound) {
				return fmt.Errorf("failed to apply snapshot: %w", err)
			}
		} else {
			log.Debug("snapshot applied", slog.Uint64("seq", agg.GetSeq()), agg.GetVersion().SlogAttr())
		}
	}

	curVersion := agg.GetVersion()

	st := r.metrics.StoreLoadDuration(aggType)
	loaded, err := r.store.Load(
		ctx,
		aggType,
		aggID,
		WithStartVersion(curVersion+1),
		WithStartSeq(agg.GetSeq()+1),
	)
	st.ObserveDuration()
	if err != nil {
		if errors.Is(err, ErrAggregateNotFound) && curVersion > 0 {
			// snapshot covered the whole stream
			return nil
		}
		return err
	}

	for _, e := range loaded {
		expectVersion := agg.GetVersion() + 1
		if e.Version != expectVersion {
			return fmt.Errorf("expect version %d, got %d", expectVersion, e.Version)
		}

		evt, err := r.registry.Decode(e)
		if err != nil {
			return err
		}
		if err := agg.Apply(evt); err != nil {
			return err
		}

		agg.setVersion(e.Version)
		agg.setSeq(e.Seq)
		curVersion = e.Version
	}

	if curVersion == 0 {
		return ErrAggregateNotFound
	}

	return nil
}

// Save persists the aggregate's uncommitted events with
// expectedVersion = current version, then clears them.
func (r *repository) Save(ctx context.Context, agg Aggregate, saveOpts ...SaveOption) error {
	uncommitted := agg.Uncommitted()
	if len(uncommitted) == 0 {
		return nil
	}
	aggType := agg.GetAggType()
	if aggType == "" {
		return errors.New("aggregate type is empty")
	}
	aggID := agg.GetID()
	if aggID == "" {
		return errors.New("aggregate id is empty")
	}

	defer r.metrics.RepoSaveDuration(aggType).ObserveDuration()

	saveOptions := repoSaveOptions{}
	for _, opt := range saveOpts {
		opt.applyToSaveOptions(&saveOptions)
	}

	expectVersion := agg.GetVersion()
	newEnvs := make([]Envelope, 0, len(uncommitted))
	v := expectVersion

	for _, ev := range uncommitted {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}

		v++

		env := Envelope{
			ID:            gonanoid.Must(),
			Type:          EventTypeOf(ev),
			AggregateID:   aggID,
			AggregateType: aggType,
			Version:       v,
			OccurredAt:    time.Now(),
			Data:          data,
		}

		if err := env.Validate(); err != nil {
			return err
		}

		newEnvs = append(newEnvs, env)
	}

	st := r.metrics.StoreAppendDuration(aggType)
	res, err := r.store.Append(ctx, aggType, aggID, expectVersion, newEnvs)
	st.ObserveDuration()
	if err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			r.metrics.ConcurrencyConflict(aggType)
		}
		return fmt.Errorf("failed to save agg_type=%s agg_id=%s: %w", aggType, aggID, err)
	}
	if res == nil {
		return errors.New("append returned nil result")
	}

	agg.setSeq(res.LastSeq)
	agg.setVersion(v)
	agg.ClearUncommitted()
	r.metrics.EventsAppended(aggType, len(newEnvs))

	if saveOptions.snapshot {
		if _, err := r.CreateSnapshot(ctx, agg); err != nil {
			return err
		}
	}

	r.log.Debug(
		"saved",
		slog.Group(
			"agg",
			slog.String("id", aggID),
			slog.String("type", aggType),
			slog.Uint64("seq", agg.GetSeq()),
			agg.GetVersion().SlogAttr(),
		),
		slog.Int("num_events", len(newEnvs)),
	)

	return nil
}

func (r *repository) CreateSnapshot(ctx context.Context, agg Aggregate) (*Snapshot, error) {
	if r.snapshotter == nil {
		return nil, ErrSnapshotterUnconfigured
	}
	ss, err := CreateSnapshot(agg)
	if err != nil {
		return nil, err
	}
	t := r.metrics.SnapshotSaveDuration(agg.GetAggType())
	err = r.snapshotter.SaveSnapshot(ctx, ss)
	t.ObserveDuration()
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	r.log.Debug("snapshot saved", ss.logAttrs())
	return ss, nil
}

var _ Repository = (*repository)(nil)

// === TypedRepository ===

// TypedRepository is a generics wrapper over Repository bound to one
// aggregate type.
type TypedRepository[T Aggregate] interface {
	GetAggType() string
	New() T
	NewWithID(id string) T
	Load(ctx context.Context, a T, opts ...LoadOption) error
	GetByID(ctx context.Context, aggID string, opts ...LoadOption) (T, error)
	Save(ctx context.Context, agg T, opts ...SaveOption) error
}

type typedRepo[T Aggregate] struct {
	r   Repository
	log *slog.Logger
}

func NewTypedRepository[T Aggregate](
	log *slog.Logger,
	s EventStore,
	reg *EventRegistry,
	opts ...RepositoryOption,
) TypedRepository[T] {
	return NewTypedRepositoryFrom[T](log, NewRepository(log, s, reg, opts...))
}

func NewTypedRepositoryFrom[T Aggregate](log *slog.Logger, r Repository) TypedRepository[T] {
	return &typedRepo[T]{r: r, log: log.With(slog.String("repo", fmt.Sprintf("%T", *new(T))))}
}

func (t *typedRepo[T]) New() T { return t.NewWithID("") }

func (t *typedRepo[T]) NewWithID(id string) T {
	var a T
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() == reflect.Pointer {
		a = reflect.New(rt.Elem()).Interface().(T)
	} else {
		a = *new(T)
	}
	a.SetID(id)
	return a
}

func (t *typedRepo[T]) Load(ctx context.Context, a T, opts ...LoadOption) error {
	return t.r.Load(ctx, a, opts...)
}

func (t *typedRepo[T]) GetByID(ctx context.Context, aggID string, opts ...LoadOption) (a T, err error) {
	if aggID == "" {
		return a, errors.New("aggregate id is empty")
	}
	a = t.NewWithID(aggID)
	if err = t.r.Load(ctx, a, opts...); err != nil {
		return
	}
	return a, nil
}

func (t *typedRepo[T]) Save(ctx context.Context, agg T, opts ...SaveOption) error {
	return t.r.Save(ctx, agg, opts...)
}

func (t *typedRepo[T]) GetAggType() string {
	return t.New().GetAggType()
}
