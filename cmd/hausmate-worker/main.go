package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"hausmate/internal/amqp"
	"hausmate/internal/config"
	applog "hausmate/internal/log"
	"hausmate/internal/storage"
	"hausmate/internal/worker"
)

func main() {
	_ = godotenv.Load()

	applog.Setup()

	slog.Info("Starting hausmate-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Activity consumer: only when AMQP is configured. The reminder scanner
	// runs either way since it reads straight from the database.
	if cfg.AMQPURL != "" {
		activityWorker := worker.NewActivityWorker(repo)
		g.Go(func() error {
			return amqp.Consume(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, activityWorker.HandleActivityMessage)
		})
		slog.Info("Activity consumer started", "queue", cfg.AMQPQueue)
	} else {
		slog.Info("AMQP disabled - no AMQP_URL provided, skipping activity consumer")
	}

	scanner := worker.NewReminderScanner(repo, cfg.ReminderWindow)
	g.Go(func() error {
		return scanner.Run(ctx, cfg.ReminderInterval)
	})
	slog.Info("Reminder scanner started", "interval", cfg.ReminderInterval, "window", cfg.ReminderWindow)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Worker stopped gracefully")
}
