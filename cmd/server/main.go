// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

// Package main is the entry point for the Table anti-fraud server.
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config file and environment (Koanf v2), with
//     live reload of the config file
//  2. Event store: DuckDB tables holding logins and completed hands
//  3. Alert repository: DuckDB or Postgres behind a circuit breaker
//  4. Outbox (optional): Badger write-ahead log, replayed at startup
//  5. Event bus (optional): alert events to NATS JetStream
//  6. Security scheduler, with an optional Redis lock across instances
//  7. Admin HTTP API
//
// Long-running pieces run under a suture supervisor tree. SIGINT and SIGTERM
// stop the tree; in-flight scans and repository writes are drained before the
// process exits.
//
// # Example Usage
//
// Development, everything in memory and no auth:
//
//	export DUCKDB_PATH=
//	export AUTH_MODE=none
//	./table-server
//
// Production:
//
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export DB_DRIVER=postgres
//	export POSTGRES_DSN=postgres://table:secret@db:5432/table
//	export OUTBOX_ENABLED=true
//	export REDIS_ENABLED=true REDIS_ADDR=redis:6379
//	export NATS_ENABLED=true NATS_URL=nats://nats:4222
//	./table-server
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/elevow/table-sub009/internal/alerts"
	"github.com/elevow/table-sub009/internal/api"
	"github.com/elevow/table-sub009/internal/auth"
	"github.com/elevow/table-sub009/internal/config"
	"github.com/elevow/table-sub009/internal/database"
	"github.com/elevow/table-sub009/internal/detection"
	"github.com/elevow/table-sub009/internal/eventbus"
	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/scheduler"
	"github.com/elevow/table-sub009/internal/supervisor"
	"github.com/elevow/table-sub009/internal/supervisor/services"
	"github.com/elevow/table-sub009/internal/wal"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("db_driver", cfg.Database.Driver).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Bool("outbox_enabled", cfg.Outbox.Enabled).
		Msg("Starting Table anti-fraud server")

	provider := config.NewProvider(cfg)
	provider.OnReload(func(next *config.Config) {
		logging.SetLevelString(next.Logging.Level)
	})
	if err := provider.Watch(); err != nil {
		logging.Warn().Err(err).Msg("Config file watcher not started, live reload disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event store
	eventDB, err := database.OpenDuckDB(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open event database")
	}
	defer closeQuietly("event database", eventDB.Close)

	events := detection.NewDuckDBEventSource(eventDB)
	if err := events.InitSchema(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event schema")
	}

	// Alert repository
	repo, closeRepo, err := openRepository(ctx, cfg.Database, eventDB)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize alert repository")
	}
	defer closeRepo()

	breaker := alerts.NewBreakerRepository(repo, alerts.BreakerConfig{
		Name:         cfg.Database.Driver,
		MaxFailures:  cfg.Database.BreakerFailures,
		OpenTimeout:  cfg.Database.BreakerTimeout,
		QueryTimeout: cfg.Database.QueryTimeout,
	})

	var storeOpts []alerts.Option

	// Outbox
	var outbox *wal.BadgerWAL
	if cfg.Outbox.Enabled {
		outbox, err = wal.Open(&cfg.Outbox)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Outbox.Path).Msg("Failed to open alert outbox")
		}
		defer closeQuietly("alert outbox", outbox.Close)
		storeOpts = append(storeOpts, alerts.WithOutbox(outbox))
	} else {
		logging.Warn().Msg("Alert outbox disabled, alerts created during a repository outage live only in memory")
	}

	// Event bus
	var publisher *eventbus.Publisher
	if cfg.NATS.Enabled {
		publisher, err = eventbus.NewNATSPublisher(cfg.NATS)
		if err != nil {
			logging.Error().Err(err).Str("url", cfg.NATS.URL).Msg("NATS publisher unavailable, continuing without alert events")
		} else {
			storeOpts = append(storeOpts, alerts.WithNotifier(publisher))
			logging.Info().Str("topic", cfg.NATS.Topic).Msg("Alert events enabled")
		}
	}

	store := alerts.NewStore(breaker, storeOpts...)

	if outbox != nil {
		result, err := outbox.RecoverPending(ctx, store.Replayer())
		if err != nil {
			logging.Error().Err(err).Msg("Outbox recovery failed, pending entries stay queued for the retry loop")
		} else if result.TotalPending > 0 {
			logging.Info().
				Int("pending", result.TotalPending).
				Int("recovered", result.Recovered).
				Int("failed", result.Failed).
				Msg("Replayed pending alert writes")
		}
	}

	// Security scheduler
	schedOpts := []scheduler.Option{scheduler.WithHandSource(events)}
	if cfg.Redis.Enabled {
		rdb, err := scheduler.DialRedis(ctx, cfg.Redis)
		if err != nil {
			logging.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, scheduler lock limited to this instance")
		} else {
			defer closeQuietly("redis client", rdb.Close)
			schedOpts = append(schedOpts, scheduler.WithLocker(scheduler.NewRedisLocker(rdb), cfg.Redis.LockKey, cfg.Redis.LockTTL))
		}
	}
	sched := scheduler.New(provider, events, store, schedOpts...)

	// Admin API
	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT authentication")
		}
	}

	handler := api.NewHandler(store, breaker, sched).WithEventRecorder(events)
	httpServer := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: api.NewRouter(api.RouterConfig{
			Handler:  handler,
			Security: cfg.Security,
			JWT:      jwtManager,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	// Supervisor tree
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if outbox != nil {
		tree.AddDataService(services.NewOutboxRetryService(wal.NewRetryLoop(outbox, store.Replayer())))
		tree.AddDataService(services.NewOutboxCompactorService(wal.NewCompactor(outbox)))
	}
	tree.AddDetectionService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", httpServer.Addr).Msg("Admin API configured")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	// Stop never cancels a scan in flight; let it and its writes land before
	// the stores close.
	sched.Wait()
	store.Wait()

	if publisher != nil {
		closeQuietly("event publisher", publisher.Close)
	}

	logging.Info().Msg("Application stopped gracefully")
}

// openRepository returns the alert repository for cfg.Driver with its schema
// in place, and a close function for any connection it opened.
func openRepository(ctx context.Context, cfg config.DatabaseConfig, duck *sql.DB) (alerts.Repository, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := database.OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		repo := alerts.NewPostgresRepository(pool)
		if err := repo.InitSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		logging.Info().Msg("Alert repository: postgres")
		return repo, pool.Close, nil

	default:
		repo := alerts.NewDuckDBRepository(duck)
		if err := repo.InitSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("duckdb schema: %w", err)
		}
		logging.Info().Str("path", cfg.Path).Msg("Alert repository: duckdb")
		return repo, func() {}, nil
	}
}

func closeQuietly(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("Error during close")
	}
}
