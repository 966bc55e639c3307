// Command reminders runs a single reminder pass and prints the outcome as JSON.
// It is meant for cron when the in-process worker is disabled.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gracefellowship/church-admin-backend/internal/app"
	"github.com/gracefellowship/church-admin-backend/internal/config"
	"github.com/gracefellowship/church-admin-backend/internal/db"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/logger"
)

func main() {
	lookahead := flag.Duration("lookahead", 0, "reminder window; defaults to REMINDER_LOOKAHEAD")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout carries only the result.
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr, Service: "church-admin-reminders"})
	slog.SetDefault(log)

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	appCfg, err := app.ConfigFrom(cfg, pool, log)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	container, err := app.NewContainer(appCfg)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	result, err := container.Reminder.RunPass(ctx, time.Now().UTC(), *lookahead)
	if err != nil {
		log.Error("reminder pass failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Error("failed to write result", "error", err)
		os.Exit(1)
	}
	if len(result.Failed) > 0 {
		os.Exit(2)
	}
}
