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

	"github.com/redis/go-redis/v9"

	"github.com/gracefellowship/church-admin-backend/internal/app"
	"github.com/gracefellowship/church-admin-backend/internal/config"
	"github.com/gracefellowship/church-admin-backend/internal/db"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/logger"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/ratelimit"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "church-admin"})
	slog.SetDefault(log)

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("failed to migrate db", "error", err)
		os.Exit(1)
	}

	appCfg, err := app.ConfigFrom(cfg, pool, log)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appCfg.Ready = func(ctx context.Context) error { return db.Ping(ctx, pool) }

	// Rate limiting is optional and fails open when Redis is down.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		limiter := ratelimit.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "church-admin:rl")
		appCfg.RateLimit = limiter.Middleware()
		log.Info("rate limiting enabled", "redis_addr", cfg.RedisAddr, "per_minute", cfg.RateLimitPerMinute)
	}

	container, err := app.NewContainer(appCfg)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword != "" {
		if err := container.UserService.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			log.Error("failed to bootstrap admin", "error", err)
			os.Exit(1)
		}
	}

	// Reminder worker stops with ctx.
	go container.Reminder.Run(ctx)

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		log.Info("server running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", "error", err)
	}

	log.Info("server exited gracefully")
}
