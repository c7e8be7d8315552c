// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreMemory   = "memory"
	StoreNATS     = "nats"
	StorePostgres = "postgres"
)

type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"MEDOPS_ADDR" envDefault:":8080"`

	// Store selects the event store backend: memory, nats or postgres.
	Store string `env:"MEDOPS_STORE" envDefault:"memory"`

	NATSURL     string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisAddr enables the Redis verification-code backend when set;
	// otherwise codes live in process memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	VerifyTTL time.Duration `env:"MEDOPS_VERIFY_TTL" envDefault:"1h"`

	// RetryAttempts bounds how often a command is retried on a write conflict.
	RetryAttempts int `env:"MEDOPS_RETRY_ATTEMPTS" envDefault:"3"`

	// SnapshotCacheSize is the process-local snapshot cache capacity per
	// repository. Zero disables the cache.
	SnapshotCacheSize int `env:"MEDOPS_SNAPSHOT_CACHE_SIZE" envDefault:"256"`

	LogLevel slog.Level `env:"MEDOPS_LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	switch cfg.Store {
	case StoreMemory, StoreNATS, StorePostgres:
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
	if cfg.Store == StorePostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	if cfg.RetryAttempts < 1 {
		return Config{}, fmt.Errorf("retry attempts must be >= 1")
	}
	return cfg, nil
}
