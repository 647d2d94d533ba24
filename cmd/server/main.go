package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"signup/internal/platform/config"
	"signup/internal/platform/httpserver"
	"signup/internal/platform/logger"
	"signup/internal/platform/postgres"
	"signup/internal/platform/redis"
	"signup/internal/registration/handler"
	regmetrics "signup/internal/registration/metrics"
	"signup/internal/registration/models"
	"signup/internal/registration/service"
	"signup/internal/registration/store"
	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/audit/publisher"
	"signup/pkg/platform/audit/store/kafka"
	"signup/pkg/platform/audit/store/memory"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in internal/registration.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	registry := prometheus.NewRegistry()

	regStore, purge, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	auditStore, closeAudit, err := openAuditStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(registry)),
	)
	defer auditPublisher.Close()

	svc := service.New(regStore,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(regmetrics.New(registry)),
		service.WithPolicy(models.DefaultPolicy(cfg.BcryptCost)),
	)

	srv := httpserver.New(cfg.Addr, newRouter(handler.New(svc, log), registry))

	go purgeLoop(ctx, cfg.PurgeInterval, purge, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting signup service", "addr", cfg.Addr, "backend", cfg.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

type purgeFunc func(ctx context.Context) (int64, error)

// openStore selects the registration backend. Redis expires keys itself, so
// its purge is a no-op.
func openStore(ctx context.Context, cfg config.Server, log *slog.Logger) (service.Store, purgeFunc, func(), error) {
	switch cfg.Backend() {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		s := store.NewPostgres(db, cfg.RegistrationTTL)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return s, s.DeleteExpired, closer(log, "postgres", db), nil

	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		noop := func(context.Context) (int64, error) { return 0, nil }
		return store.NewRedis(client, cfg.RegistrationTTL), noop, closer(log, "redis", client), nil

	default:
		s := store.NewInMemory(cfg.RegistrationTTL)
		purge := func(ctx context.Context) (int64, error) { return int64(s.Purge(ctx)), nil }
		return s, purge, func() {}, nil
	}
}

// openAuditStore ships audit events to Kafka when brokers are configured and
// keeps them in process otherwise.
func openAuditStore(cfg config.Server, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("no kafka brokers configured; audit events are kept in memory")
		return memory.NewInMemoryStore(), func() {}, nil
	}
	client, err := kafka.NewClient(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	return kafka.New(client, cfg.Kafka.AuditTopic), client.Close, nil
}

func purgeLoop(ctx context.Context, interval time.Duration, purge purgeFunc, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := purge(ctx)
			if err != nil {
				log.Error("failed to purge expired registrations", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("purged expired registrations", "count", removed)
			}
		}
	}
}

func closer(log *slog.Logger, name string, c interface{ Close() error }) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error("failed to close "+name, "error", err)
		}
	}
}
