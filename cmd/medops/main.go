package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	natsadapter "github.com/dooyeoung/medops-sub001/adapters/nats"
	"github.com/dooyeoung/medops-sub001/adapters/postgres"
	promadapter "github.com/dooyeoung/medops-sub001/adapters/prometheus"
	redisadapter "github.com/dooyeoung/medops-sub001/adapters/redis"
	"github.com/dooyeoung/medops-sub001/core/es"
	"github.com/dooyeoung/medops-sub001/core/medrec"
	"github.com/dooyeoung/medops-sub001/core/verify"
	"github.com/dooyeoung/medops-sub001/internal/config"
	"github.com/dooyeoung/medops-sub001/internal/httpapi"
	"github.com/dooyeoung/medops-sub001/ports/kv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	esMetrics := promadapter.NewESMetrics(registry)

	store, snapshotter, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	repo := es.NewTypedRepository[*medrec.Record](
		log,
		store,
		medrec.NewRegistry(),
		es.WithSnapshotter(snapshotter),
		es.WithSnapshotCache(cfg.SnapshotCacheSize),
		es.WithMetrics(esMetrics),
	)

	records := medrec.NewService(
		log,
		repo,
		medrec.WithMaxAttempts(cfg.RetryAttempts),
		medrec.WithSnapshots(snapshotter != nil || cfg.SnapshotCacheSize > 0),
	)
	defer records.Close()

	codeStore, closeCodes, err := buildCodeStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCodes()
	verifier := verify.NewService(log, codeStore, verify.WithTTL(cfg.VerifyTTL))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(log, records, verifier, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", cfg.Addr), slog.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStore selects the event store backend and a matching snapshotter.
// The returned snapshotter may be nil; the repository then keeps snapshots
// only in its process-local cache.
func buildStore(
	ctx context.Context,
	cfg config.Config,
	log *slog.Logger,
) (es.EventStore, es.Snapshotter, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return es.NewInMemoryStore(), es.NewInMemorySnapshotter(), func() {}, nil

	case config.StoreNATS:
		connect := natsadapter.ReuseConnection(natsadapter.ConnectURL(cfg.NATSURL))
		store, err := natsadapter.NewEventStore(natsadapter.EventStoreConfig{
			Connect: connect,
			Log:     log,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create nats store: %w", err)
		}
		snapshotter, err := natsadapter.NewSnapshotter(natsadapter.KvConfig{
			Connect: connect,
			Bucket:  "medops-snapshots",
		})
		if err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("failed to create nats snapshotter: %w", err)
		}
		return store, snapshotter, func() {
			snapshotter.Close()
			_ = store.Close()
		}, nil

	case config.StorePostgres:
		store, err := postgres.NewEventStore(ctx, postgres.Config{URL: cfg.DatabaseURL, Log: log})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		return store, nil, store.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func buildCodeStore(ctx context.Context, cfg config.Config) (kv.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return kv.NewMemStore(), func() {}, nil
	}
	store, err := redisadapter.NewStore(ctx, redisadapter.Config{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		KeyPrefix: "medops:",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
