package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/lexvault/internal/app"
	"github.com/hugh/lexvault/internal/database"
	"github.com/hugh/lexvault/internal/tasks"
	"github.com/hugh/lexvault/pkg/config"
	"github.com/hugh/lexvault/pkg/queue"
	"github.com/hugh/lexvault/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env, "lexvault-worker")
	slog.SetDefault(logger)

	logger.Info("starting lexvault worker", "concurrency", cfg.Worker.Concurrency)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	services, err := app.New(context.Background(), cfg, db, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	client := queue.NewClient(&cfg.Redis)

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency, logger)

	// Create task handler
	handler := tasks.NewHandler(logger, services.Ingest, client)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic backfill of documents missing text or vectors
	scheduler := queue.NewScheduler(&cfg.Redis)
	if cfg.Worker.BackfillCron != "" {
		schedule, err := util.ParseSchedule(cfg.Worker.BackfillCron)
		if err != nil {
			logger.Error("invalid BACKFILL_CRON", "cron", cfg.Worker.BackfillCron, "error", err)
			os.Exit(1)
		}
		task, err := tasks.NewBackfillTask(tasks.BackfillPayload{BatchSize: cfg.Worker.BackfillSize})
		if err != nil {
			logger.Error("failed to create backfill task", "error", err)
			os.Exit(1)
		}
		entryID, err := scheduler.Register(schedule.Expr, task)
		if err != nil {
			logger.Error("failed to register backfill schedule", "error", err)
			os.Exit(1)
		}
		logger.Info("backfill scheduled", "entry_id", entryID, "cron", schedule.Expr, "next_run", schedule.Next(time.Now()))

		if err := scheduler.Start(); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	}

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		if cfg.Worker.BackfillCron != "" {
			scheduler.Shutdown()
		}
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
		cancel()
	}

	// Wait for context cancellation
	<-ctx.Done()

	client.Close()
	services.Close()
	database.Close(db)

	logger.Info("worker stopped")
}
