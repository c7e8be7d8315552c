package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dooyeoung/medops-sub001/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, config.StoreMemory, cfg.Store)
	require.Equal(t, time.Hour, cfg.VerifyTTL)
	require.Equal(t, 3, cfg.RetryAttempts)
	require.Equal(t, 256, cfg.SnapshotCacheSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MEDOPS_ADDR", ":9999")
	t.Setenv("MEDOPS_STORE", "nats")
	t.Setenv("NATS_URL", "nats://nats.internal:4222")
	t.Setenv("MEDOPS_VERIFY_TTL", "5m")
	t.Setenv("MEDOPS_RETRY_ATTEMPTS", "5")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, config.StoreNATS, cfg.Store)
	require.Equal(t, "nats://nats.internal:4222", cfg.NATSURL)
	require.Equal(t, 5*time.Minute, cfg.VerifyTTL)
	require.Equal(t, 5, cfg.RetryAttempts)
}

func TestLoad_UnknownStore(t *testing.T) {
	t.Setenv("MEDOPS_STORE", "sqlite")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_PostgresRequiresURL(t *testing.T) {
	t.Setenv("MEDOPS_STORE", "postgres")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://medops@localhost/medops")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.StorePostgres, cfg.Store)
}
