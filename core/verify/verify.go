// Package verify implements the short-lived verification-code cache used to
// confirm reservation contact addresses. Codes live in a TTL key-value store
// and expire on their own; the event-sourcing core does not depend on it.
package verify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/dooyeoung/medops-sub001/ports/kv"
)

// ErrCodeNotFound is returned when no code exists for the email or the code
// has expired.
var ErrCodeNotFound = errors.New("verification code not found")

const (
	defaultTTL = time.Hour
	keyPrefix  = "verify."
)

// Entry is the cached verification state for one email address.
type Entry struct {
	Code       string `json:"code"`
	HospitalID string `json:"hospital_id"`
}

type Service struct {
	log   *slog.Logger
	store kv.Store
	ttl   time.Duration
}

type Option func(*Service)

// WithTTL overrides the default 1h code lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewService(log *slog.Logger, store kv.Store, opts ...Option) *Service {
	s := &Service{
		log:   log.With(slog.String("service", "verify")),
		store: store,
		ttl:   defaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateCode returns a random 6-digit code, zero-padded.
func (s *Service) GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *Service) Save(ctx context.Context, email, code, hospitalID string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if code == "" {
		return errors.New("code is required")
	}
	err := kv.Put(ctx, s.store, keyPrefix+email, Entry{
		Code:       code,
		HospitalID: hospitalID,
	}, kv.PutOptions{TTL: s.ttl})
	if err != nil {
		return err
	}
	s.log.Debug("code saved", slog.String("email", email), slog.Duration("ttl", s.ttl))
	return nil
}

func (s *Service) Get(ctx context.Context, email string) (Entry, error) {
	entry, err := kv.Get[Entry](ctx, s.store, keyPrefix+email)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Entry{}, ErrCodeNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

func (s *Service) Remove(ctx context.Context, email string) error {
	return s.store.Delete(ctx, keyPrefix+email)
}
