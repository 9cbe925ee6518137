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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/example/console-booking/internal/application"
	"github.com/example/console-booking/internal/config"
	httptransport "github.com/example/console-booking/internal/http"
	"github.com/example/console-booking/internal/metrics"
	"github.com/example/console-booking/internal/persistence/sqlite"
	"github.com/example/console-booking/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("booking API terminated", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	storage, err := sqlite.Open(sqlite.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	booking, err := newApp(ctx, appDeps{
		Config:      cfg,
		Storage:     storage,
		Registry:    registry,
		Now:         time.Now,
		IDGenerator: uuid.NewString,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           booking.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		booking.sweeper.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		logger.Info("booking API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return group.Wait()
}

type appDeps struct {
	Config      config.Config
	Storage     *sqlite.Storage
	Registry    *prometheus.Registry
	Now         func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

type app struct {
	handler      http.Handler
	sweeper      *application.Sweeper
	reservations *application.ReservationService
}

// newApp wires the services, handlers and middleware on top of an opened and
// migrated storage. The token whitelist is loaded before it returns.
func newApp(ctx context.Context, deps appDeps) (*app, error) {
	cfg, logger := deps.Config, deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := metrics.Init(cfg.MetricsEnabled && deps.Registry != nil, deps.Registry)

	resourceRepo := newResourceRepositoryAdapter(deps.Storage.Resources)
	reservationRepo := newReservationRepositoryAdapter(deps.Storage.Reservations)
	tokenRepo := newTokenRepositoryAdapter(deps.Storage.Tokens)

	guard := application.NewGuardWithLogger(application.GuardConfig{
		AdminPIN:   cfg.AdminPIN,
		SeedTokens: cfg.AuthTokens,
	}, tokenRepo, deps.Now, logger)
	if err := guard.Load(ctx); err != nil {
		return nil, fmt.Errorf("load token whitelist: %w", err)
	}

	locks := application.NewResourceLocks(cfg.LockTimeout, recorder)
	policy := scheduler.DefaultPolicy()

	resourceService := application.NewResourceServiceWithLogger(resourceRepo, reservationRepo, locks, policy, deps.IDGenerator, deps.Now, logger)
	reservationService := application.NewReservationServiceWithLogger(
		application.ReservationServiceDeps{
			Reservations: reservationRepo,
			Resources:    resourceRepo,
			Guard:        guard,
			Locks:        locks,
			Metrics:      recorder,
		},
		application.ReservationServiceConfig{
			CreationTolerance: cfg.CreationTolerance,
			Retention:         cfg.Retention,
			Policy:            policy,
		},
		deps.IDGenerator,
		deps.Now,
		logger,
	)

	var metricsHandler http.Handler
	if cfg.MetricsEnabled && deps.Registry != nil {
		metricsHandler = httptransport.RequireBearerToken(cfg.MetricsToken, logger)(
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}),
		)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Resources:    httptransport.NewResourceHandler(resourceService, reservationService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Tokens:       httptransport.NewTokenHandler(guard, logger),
		Health:       deps.Storage.Ping,
		Metrics:      metricsHandler,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Metrics(recorder),
			httptransport.ResolvePrincipal(guard),
			httptransport.RateLimitMutations(cfg.RateLimitPerMinute, logger),
		},
	})

	return &app{
		handler:      router,
		sweeper:      application.NewSweeper(reservationService, cfg.SweepInterval, logger),
		reservations: reservationService,
	}, nil
}
