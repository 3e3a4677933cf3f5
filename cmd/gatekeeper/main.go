package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatekeeper/internal/api"
	"gatekeeper/internal/config"
	"gatekeeper/internal/logger"
	"gatekeeper/internal/models"
	"gatekeeper/internal/observability"
	"gatekeeper/internal/ratelimit"
	"gatekeeper/internal/version"

	"github.com/redis/go-redis/v9"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, version.GetInfo())
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, version.GetInfo())
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize the shared counter store
	store, err := initializeStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize rate limit store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Wrap the store with instrumentation if metrics are enabled
	var activeStore ratelimit.Store = store
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStore(store)
		if err != nil {
			slog.Error("Failed to create instrumented store", "error", err)
			os.Exit(1)
		}
		activeStore = instrumented
	}

	// Build the tier catalog and one limiter per tier
	catalog, err := buildCatalog(cfg)
	if err != nil {
		slog.Error("Failed to build tier catalog", "error", err)
		os.Exit(1)
	}

	limiterOpts := []ratelimit.Option{ratelimit.WithKeyPrefix(cfg.Limiter.KeyPrefix)}
	if cfg.Limiter.FullAccounting {
		limiterOpts = append(limiterOpts, ratelimit.WithFullAccounting())
	}

	limiters := make(map[ratelimit.Tier]*ratelimit.Limiter, len(catalog))
	for _, tier := range catalog.Tiers() {
		limiters[tier] = ratelimit.New(activeStore, tier, catalog, limiterOpts...)
	}

	defaultTier, err := ratelimit.ParseTier(cfg.Limiter.DefaultTier)
	if err != nil {
		slog.Error("Invalid default tier", "error", err)
		os.Exit(1)
	}
	authTier, err := ratelimit.ParseTier(cfg.Limiter.AuthenticatedTier)
	if err != nil {
		slog.Error("Invalid authenticated tier", "error", err)
		os.Exit(1)
	}

	// Initialize HTTP handlers and routes
	handlers := api.NewHandlers(limiters, defaultTier, cfg.Store.Type)

	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}
	if cfg.Limiter.SelfProtect {
		routeOpts = append(routeOpts,
			api.WithRateLimiter(ratelimit.Middleware(limiters[defaultTier], limiters[authTier])))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "addr", server.Addr, "store", cfg.Store.Type)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	// Create a deadline to wait for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown metrics server
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}

// initializeStore creates and returns a counter store based on configuration
func initializeStore(cfg *models.Config) (ratelimit.Store, error) {
	switch cfg.Store.Type {
	case models.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			PoolSize: cfg.Store.Redis.PoolSize,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ratelimit.NewRedisStore(ctx, client)
	case models.StoreTypeMemory:
		slog.Warn("Using in-process store; limits are not shared across replicas")
		return ratelimit.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
}

// buildCatalog merges configured tier overrides into the default catalog
func buildCatalog(cfg *models.Config) (ratelimit.Catalog, error) {
	overrides := make(map[string]ratelimit.TierLimits, len(cfg.Tiers))
	for name, tier := range cfg.Tiers {
		overrides[name] = ratelimit.TierLimits{
			RequestsPerMinute: tier.RequestsPerMinute,
			RequestsPerHour:   tier.RequestsPerHour,
			RequestsPerDay:    tier.RequestsPerDay,
			BurstAllowance:    tier.BurstAllowance,
		}
	}
	return ratelimit.NewCatalog(overrides)
}
