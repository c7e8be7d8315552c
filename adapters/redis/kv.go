// Package redis implements the kv port on a Redis server. Entries are plain
// string values; expiry is delegated to Redis via SET with TTL.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dooyeoung/medops-sub001/ports/kv"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces all keys written through this store.
	KeyPrefix string
}

type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Store{client: client, prefix: cfg.KeyPrefix}, nil
}

// NewFromClient wraps an existing client, useful in tests.
func NewFromClient(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, prefix: keyPrefix}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Put(ctx context.Context, key string, entry kv.Entry, opts kv.PutOptions) error {
	var ttl time.Duration
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	return s.client.Set(ctx, s.key(key), entry.Data, ttl).Err()
}

func (s *Store) Get(ctx context.Context, key string) (kv.Entry, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return kv.Entry{}, kv.ErrNotFound
		}
		return kv.Entry{}, err
	}
	return kv.Entry{Data: data}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

var _ kv.Store = (*Store)(nil)
