package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkuzmin/lavka/internal/app"
	"github.com/mkuzmin/lavka/internal/cache"
	"github.com/mkuzmin/lavka/internal/config"
	"github.com/mkuzmin/lavka/internal/kv"
	"github.com/mkuzmin/lavka/internal/server"
	"github.com/mkuzmin/lavka/internal/storage/sqlite"
	"github.com/mkuzmin/lavka/internal/telemetry"
	"github.com/mkuzmin/lavka/internal/worker"
)

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting lavka", "version", version, "addr", cfg.Server.Addr)

	// Open database
	store, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Seed categories from config
	ctx := context.Background()
	if err := config.Bootstrap(ctx, cfg, store); err != nil {
		return err
	}

	// Metrics
	var metrics *telemetry.Metrics
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = telemetry.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	// Cache backend
	backend, closeBackend, err := newBackend(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeBackend()

	// Cache layers
	cacheStore := cache.NewStore(backend, metrics)
	invalidator := cache.NewInvalidator(backend, metrics)
	coordinator := cache.NewCoordinator(cacheStore, invalidator)
	market := cache.NewMarket(cacheStore, ttlPolicy(cfg.Cache.TTL))

	catalog := app.NewCatalog(store, market, coordinator)

	// Background workers
	var workers []worker.Worker
	if cfg.Cache.Janitor.Enabled {
		workers = append(workers, worker.NewJanitor(cacheStore, metrics, cfg.Cache.Janitor.Interval))
	}

	// Create HTTP server
	handler := server.New(server.Deps{
		Catalog:        catalog,
		Invalidator:    invalidator,
		Store:          cacheStore,
		ReadyCheck:     store.Ping,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		AdminKey:       cfg.Auth.AdminKey,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.NewRunner(workers...).Run(workerCtx)
	}()

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("lavka ready", "addr", cfg.Server.Addr, "cache_backend", cfg.Cache.Backend)

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		return err
	}

	// Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	stopWorkers()
	<-workerDone

	slog.Info("lavka stopped")
	return nil
}

// newBackend builds the configured key-value backend. Remote backends get a
// circuit breaker when enabled; the memory backend never needs one.
func newBackend(ctx context.Context, cfg config.CacheConfig) (kv.Backend, func(), error) {
	switch cfg.Backend {
	case "redis":
		r := kv.NewRedis(kv.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, nil, err
		}
		var backend kv.Backend = r
		if cfg.Breaker.Enabled {
			backend = kv.WithBreaker(r, kv.BreakerConfig{
				ErrorThreshold: cfg.Breaker.ErrorThreshold,
				MinSamples:     cfg.Breaker.MinSamples,
				WindowSeconds:  cfg.Breaker.WindowSeconds,
				OpenTimeout:    cfg.Breaker.OpenTimeout,
			})
		}
		return backend, func() { r.Close() }, nil
	default:
		m, err := kv.NewMemory(cfg.MaxSize, cache.DefaultTTLPolicy().Default)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	}
}

// ttlPolicy overlays config overrides onto the stock per-namespace TTLs.
func ttlPolicy(cfg config.TTLConfig) cache.TTLPolicy {
	p := cache.DefaultTTLPolicy()
	if cfg.Listings > 0 {
		p.Listings = cfg.Listings
	}
	if cfg.Categories > 0 {
		p.Categories = cfg.Categories
	}
	if cfg.Search > 0 {
		p.Search = cfg.Search
	}
	if cfg.Profile > 0 {
		p.Profile = cfg.Profile
	}
	return p
}
