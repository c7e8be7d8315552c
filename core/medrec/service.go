package medrec

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dooyeoung/medops-sub001/core/es"
	"github.com/dooyeoung/medops-sub001/core/perkey"
)

const defaultMaxAttempts = 3

// Service exposes one operation per reservation command. Each operation
// replays the record, validates the command against current state, raises
// one event and appends it with an expected-version guard. Stale appends
// are retried with a fresh replay up to a bounded attempt count; only after
// the budget is exhausted does es.ErrConcurrencyConflict surface.
//
// Commands for the same record are additionally serialized within the
// process via a per-key scheduler. The store's compare-and-append remains
// the cross-process serialization point.
type Service struct {
	log         *slog.Logger
	repo        es.TypedRepository[*Record]
	sched       *perkey.Scheduler[string]
	maxAttempts int
	snapshots   bool
}

type ServiceOption func(*Service)

// WithMaxAttempts bounds the reload-and-retry loop on append conflicts.
func WithMaxAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithSnapshots enables snapshot creation on save and snapshot use on load.
func WithSnapshots(enabled bool) ServiceOption {
	return func(s *Service) { s.snapshots = enabled }
}

func NewService(log *slog.Logger, repo es.TypedRepository[*Record], opts ...ServiceOption) *Service {
	s := &Service{
		log:         log.With(slog.String("service", "medrec")),
		repo:        repo,
		sched:       perkey.New[string](),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close shuts down the per-record scheduler.
func (s *Service) Close() { s.sched.Close() }

type CreateReservationCmd struct {
	ReservationID string
	PatientID     string
	HospitalID    string
	ScheduledAt   time.Time
}

// CreateReservation starts a new record stream. A record that already exists
// fails with ErrInvalidTransition.
func (s *Service) CreateReservation(ctx context.Context, cmd CreateReservationCmd) (*Record, error) {
	return s.run(ctx, cmd.ReservationID, true, func(r *Record) error {
		return r.Create(cmd.PatientID, cmd.HospitalID, cmd.ScheduledAt)
	})
}

func (s *Service) Confirm(ctx context.Context, reservationID string) (*Record, error) {
	return s.run(ctx, reservationID, false, func(r *Record) error {
		return r.Confirm()
	})
}

func (s *Service) Requeue(ctx context.Context, reservationID, reason string) (*Record, error) {
	return s.run(ctx, reservationID, false, func(r *Record) error {
		return r.Requeue(reason)
	})
}

func (s *Service) AssignDoctor(ctx context.Context, reservationID, doctorID string) (*Record, error) {
	return s.run(ctx, reservationID, false, func(r *Record) error {
		return r.AssignDoctor(doctorID)
	})
}

func (s *Service) UpdateNote(ctx context.Context, reservationID, note string) (*Record, error) {
	return s.run(ctx, reservationID, false, func(r *Record) error {
		return r.UpdateNote(note)
	})
}

func (s *Service) Complete(ctx context.Context, reservationID string) (*Record, error) {
	return s.run(ctx, reservationID, false, func(r *Record) error {
		return r.Complete()
	})
}

func (s *Service) Cancel(ctx context.Context, reservationID, reason string) (*Record, error) {
	return s.run(ctx, reservationID, false, func(r *Record) error {
		return r.Cancel(reason)
	})
}

// Get replays and returns the current record state.
func (s *Service) Get(ctx context.Context, reservationID string) (*Record, error) {
	return s.repo.GetByID(ctx, reservationID, es.WithSnapshot(s.snapshots))
}

func (s *Service) run(
	ctx context.Context,
	reservationID string,
	allowNew bool,
	mutate func(*Record) error,
) (*Record, error) {
	if reservationID == "" {
		return nil, errors.New("reservation id is required")
	}

	var out *Record
	err := s.sched.DoContext(ctx, reservationID, func() error {
		var err error
		out, err = s.execute(ctx, reservationID, allowNew, mutate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) execute(
	ctx context.Context,
	reservationID string,
	allowNew bool,
	mutate func(*Record) error,
) (*Record, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		r := s.repo.NewWithID(reservationID)
		if err := s.repo.Load(ctx, r, es.WithSnapshot(s.snapshots)); err != nil {
			if !allowNew || !errors.Is(err, es.ErrAggregateNotFound) {
				return nil, err
			}
		}

		if err := mutate(r); err != nil {
			return nil, err
		}

		if err := s.repo.Save(ctx, r, es.WithSnapshot(s.snapshots)); err != nil {
			if errors.Is(err, es.ErrConcurrencyConflict) {
				lastErr = err
				s.log.Debug(
					"append conflict, retrying",
					slog.String("id", reservationID),
					slog.Int("attempt", attempt),
				)
				continue
			}
			return nil, err
		}

		return r, nil
	}

	return nil, lastErr
}
