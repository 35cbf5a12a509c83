package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/golfshopapp/teesheet/internal/api/router"
	appconfig "github.com/golfshopapp/teesheet/internal/config"
	"github.com/golfshopapp/teesheet/internal/course"
	"github.com/golfshopapp/teesheet/internal/http/handlers"
	"github.com/golfshopapp/teesheet/internal/observability/metrics"
	"github.com/golfshopapp/teesheet/internal/session"
	"github.com/golfshopapp/teesheet/internal/teesheet"
	"github.com/golfshopapp/teesheet/internal/workflow"
	"github.com/golfshopapp/teesheet/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting teesheet API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Session snapshot store
	store := newSessionStore(cfg, logger)

	// Booking service client
	client := teesheet.NewClient(
		func() string { return cfg.APIBaseURL },
		course.StaticResolver(cfg.CourseDomain),
		logger,
		teesheet.WithTimeout(cfg.HTTPTimeout),
		teesheet.WithMetrics(bookingMetrics),
	)

	manager := workflow.NewManager(client, store, logger, bookingMetrics,
		workflow.WithCartDefault(cfg.DefaultCartRequired),
	)

	// Evict idle live sessions; their snapshots stay in the store.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go runSweeper(sweepCtx, manager, cfg.SweepInterval, cfg.SessionTTL)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		SessionsHandler:    handlers.NewSessionsHandler(manager, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newSessionStore connects to Redis unless memory sessions are requested, and
// falls back to memory when Redis is unreachable at startup.
func newSessionStore(cfg *appconfig.Config, logger *logging.Logger) session.Store {
	if cfg.UseMemorySessions {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(cfg.SessionTTL)
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, falling back to in-memory sessions",
			"addr", cfg.RedisAddr,
			"error", err,
		)
		return session.NewMemoryStore(cfg.SessionTTL)
	}

	logger.Info("using redis session store", "addr", cfg.RedisAddr)
	return session.NewRedisStore(client, cfg.SessionTTL)
}

func runSweeper(ctx context.Context, manager *workflow.Manager, interval, maxIdle time.Duration) {
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
			manager.Sweep(maxIdle)
		}
	}
}
