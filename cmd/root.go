// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/breaker"
	"github.com/cynayd/connect-core/internal/config"
	"github.com/cynayd/connect-core/internal/consumer"
	"github.com/cynayd/connect-core/internal/db"
	"github.com/cynayd/connect-core/internal/health"
	internalhttp "github.com/cynayd/connect-core/internal/http"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/metrics"
	"github.com/cynayd/connect-core/internal/pprof"
	"github.com/cynayd/connect-core/internal/producer"
	"github.com/cynayd/connect-core/internal/pubsub"
	"github.com/cynayd/connect-core/internal/recording"
	"github.com/cynayd/connect-core/internal/router"
	"github.com/cynayd/connect-core/internal/routing"
	"github.com/cynayd/connect-core/internal/signaling"
	"github.com/cynayd/connect-core/internal/transport"
	"github.com/cynayd/connect-core/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connect-core",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("connect-core - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanup, err := setupTracing(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	defer func() {
		if err := cleanup(ctx); err != nil {
			slog.Error("failed to shutdown tracer", "error", err)
		}
	}()

	startBackgroundServices(cfg)

	supervisor, err := startSupervisor(ctx, cfg, cmd.Annotations["version"], cmd.Annotations["commit"])
	if err != nil {
		return err
	}
	defer supervisor.shutdown(ctx)

	waitForShutdown(ctx, supervisor, cleanup)

	return nil
}

// loadConfig loads the configuration from context.
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupLogger configures the structured logger.
func setupLogger(cfg *config.Config) {
	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
}

// setupTracing initializes OpenTelemetry tracing if configured. When
// tracing is not configured it returns a no-op cleanup function.
func setupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.Metrics.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return initTracer(cfg)
}

// startBackgroundServices starts the metrics and pprof listeners.
func startBackgroundServices(cfg *config.Config) {
	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			slog.Error("failed to start metrics server", "error", err)
		}
	}()
	go func() {
		if err := pprof.CreatePProfServer(cfg); err != nil {
			slog.Error("failed to start pprof server", "error", err)
		}
	}()
}

// supervisor holds every long-lived collaborator started by startSupervisor.
// Shutdown reverses the startup order: HTTP first (stop accepting new
// signaling/REST traffic), then signaling sessions drain, then the
// registries/instance presence/scheduler/store connections tear down.
type supervisor struct {
	cfg *config.Config

	kv       kv.KV
	pubsub   pubsub.PubSub
	database *gorm.DB

	scheduler gocron.Scheduler

	instanceRegistry *routing.InstanceRegistry
	routingSvc       *routing.Service
	bus              *routing.CrossNodeBus
	workers          *worker.Pool
	routers          *router.Registry
	transports       *transport.Registry
	producers        *producer.Registry
	consumers        *consumer.Registry
	signalingMgr     *signaling.Manager
	recordingOrch    *recording.Orchestrator

	httpServer internalhttp.Server
	ready      *atomic.Bool

	shuttingDown atomic.Bool
}

// startSupervisor brings every control-plane collaborator up in order:
// database, shared store, heartbeat/instance registry, worker pool, the
// per-node media registries, signaling, the recording orchestrator, then
// the HTTP listener last so nothing answers traffic before it can serve it.
func startSupervisor(ctx context.Context, cfg *config.Config, version, commit string) (*supervisor, error) {
	database, err := db.MakeDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	kvStore, err := kv.MakeKV(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to key-value store: %w", err)
	}
	sharedBreaker := breaker.New[any](breaker.DefaultSharedStoreConfig())
	kvStore = breaker.WrapKV(kvStore, sharedBreaker)

	pubsubClient, err := pubsub.MakePubSub(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pubsub: %w", err)
	}

	instanceID := routing.GenerateInstanceID()
	instanceRegistry := routing.NewInstanceRegistry(ctx, kvStore, instanceID, cfg.Routing.InstanceTTL, cfg.Routing.InstanceHeartbeat)
	routingSvc := routing.New(kvStore, instanceID, cfg.HTTP.Port, cfg.HTTP.Port)

	scheduler, err := setupScheduler()
	if err != nil {
		return nil, err
	}
	scheduleHeartbeat(scheduler, routingSvc, 30*time.Second)
	scheduler.Start()

	workers, err := worker.New(&cfg.Worker, worker.InProcessSpawner)
	if err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}

	routers, err := router.New(kvStore, workers, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to start router registry: %w", err)
	}
	transports := transport.New(kvStore)
	producers := producer.New(kvStore)
	consumers := consumer.New(kvStore)

	bus := routing.NewCrossNodeBus(pubsubClient, instanceID, crossNodeHandler(cfg, transports, producers))

	signalingMgr := signaling.NewManager(database, kvStore, pubsubClient, routingSvc, bus, routers, transports, producers, consumers)
	verifier := signaling.NewVerifier(cfg.GetDerivedSecret(), cfg.JWT)

	recordingOrch := recording.New(database, kvStore, cfg.Recording, cfg.AWS)

	ready := &atomic.Bool{}

	checker := health.New(database, kvStore, workers, breaker.New[any](breaker.DefaultDatabaseConfig()), sharedBreaker)
	healthMetrics := health.NewMetrics()

	httpServer := internalhttp.MakeServer(cfg, kvStore, database, pubsubClient, ready, version, commit,
		func(r *gin.Engine) {
			signaling.RegisterRoutes(r, "/ws", signalingMgr, verifier)
			recording.RegisterRoutes(r, recordingOrch)
			health.RegisterRoutes(ctx, r, checker, healthMetrics, signalingMgr, routers, transports, producers, consumers)
		},
	)
	// Start blocks until the server is stopped, so it runs on its own goroutine.
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, internalhttp.ErrClosed) {
			slog.Error("HTTP server stopped", "error", err)
		}
	}()

	ready.Store(true)
	slog.Info("connect-core ready to accept traffic", "instance_id", instanceID)

	return &supervisor{
		cfg:              cfg,
		kv:               kvStore,
		pubsub:           pubsubClient,
		database:         database,
		scheduler:        scheduler,
		instanceRegistry: instanceRegistry,
		routingSvc:       routingSvc,
		bus:              bus,
		workers:          workers,
		routers:          routers,
		transports:       transports,
		producers:        producers,
		consumers:        consumers,
		signalingMgr:     signalingMgr,
		recordingOrch:    recordingOrch,
		httpServer:       httpServer,
		ready:            ready,
	}, nil
}

// crossNodeHandler answers cross-node RPC calls asking this node to
// close/pause/resume a producer or transport it owns locally, since those
// resources are only directly addressable from the node that created them.
// The federation listener toggle (legacy OpenBridge knob) doubles as a
// kill switch for inbound cross-node control: a node that disables it will
// not act on other nodes' requests, even though it keeps publishing its own.
func crossNodeHandler(cfg *config.Config, transports *transport.Registry, producers *producer.Registry) routing.RPCHandler {
	return func(ctx context.Context, op routing.RPCOp, resourceID string) error {
		if !cfg.DMR.OpenBridge.Enabled {
			return apierrors.New(apierrors.Unauthorized, "cross-node federation is disabled on this instance")
		}
		switch op {
		case routing.OpClose:
			if err := producers.Close(ctx, resourceID); err == nil {
				return nil
			}
			return transports.Close(ctx, resourceID)
		case routing.OpPause, routing.OpResume:
			p, foreign, ok := producers.FindByID(resourceID)
			if !ok || foreign || p == nil {
				return apierrors.New(apierrors.NotFound, "producer not found: "+resourceID)
			}
			if op == routing.OpPause {
				return p.Pause()
			}
			return p.Resume()
		default:
			return nil
		}
	}
}

// setupScheduler creates the background job scheduler.
func setupScheduler() (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return scheduler, nil
}

// scheduleHeartbeat runs routingSvc.Heartbeat on a fixed interval. It fires
// once immediately so the node is visible to ListHealthy before the first
// tick elapses.
func scheduleHeartbeat(scheduler gocron.Scheduler, routingSvc *routing.Service, interval time.Duration) {
	ctx := context.Background()
	routingSvc.Heartbeat(ctx)

	_, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			routingSvc.Heartbeat(ctx)
		}),
	)
	if err != nil {
		slog.Error("failed to schedule routing heartbeat", "error", err)
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM/SIGQUIT/SIGHUP, then performs
// an orderly shutdown within a bounded deadline.
func waitForShutdown(ctx context.Context, s *supervisor, cleanup func(context.Context) error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	sig := <-sigCh
	slog.Error("shutting down due to signal", "signal", sig)

	const timeout = 15 * time.Second
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.shutdown(ctx)
		if cleanup != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := cleanup(shutdownCtx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}
	}()

	select {
	case <-done:
		slog.Info("shutdown complete")
		os.Exit(0)
	case <-time.After(timeout):
		slog.Error("shutdown timed out, forcing exit")
		os.Exit(1)
	}
}

// shutdown reverses startSupervisor's order and is idempotent: the HTTP
// listener stops accepting new connections first, then in-flight signaling
// sessions are given up to 5s to drain, then the scheduler/instance
// presence/worker pool/store connections tear down. The context is marked
// with routing.WithGracefulHandoff, but nothing reads that mark, so joining
// clients get no redirect hint.
func (s *supervisor) shutdown(ctx context.Context) {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	s.ready.Store(false)

	ctx = routing.WithGracefulHandoff(ctx)

	s.httpServer.Stop()

	wg := new(sync.WaitGroup)
	drainDeadline := time.Now().Add(5 * time.Second)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for s.signalingMgr.Count() > 0 && time.Now().Before(drainDeadline) {
			time.Sleep(100 * time.Millisecond)
		}
	}()
	wg.Wait()

	if err := s.scheduler.StopJobs(); err != nil {
		slog.Error("failed to stop scheduler jobs", "error", err)
	}
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("failed to stop scheduler", "error", err)
	}

	if s.instanceRegistry != nil {
		s.instanceRegistry.Deregister(ctx)
	}

	if err := s.workers.Close(); err != nil {
		slog.Error("failed to close worker pool", "error", err)
	}

	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			slog.Error("failed to close pubsub", "error", err)
		}
	}
	if s.kv != nil {
		if err := s.kv.Close(); err != nil {
			slog.Error("failed to close kv", "error", err)
		}
	}
}

func initTracer(cfg *config.Config) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Metrics.OTLPEndpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.HTTP.ServiceName),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resources: %w", err)
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown, nil
}
