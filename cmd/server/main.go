package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/lexvault/internal/api"
	"github.com/hugh/lexvault/internal/app"
	"github.com/hugh/lexvault/internal/auth"
	"github.com/hugh/lexvault/internal/database"
	"github.com/hugh/lexvault/pkg/config"
	"github.com/hugh/lexvault/pkg/queue"
	"github.com/hugh/lexvault/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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
	logger := util.NewLogger(cfg.Server.Env, "lexvault-api")
	slog.SetDefault(logger)

	logger.Info("starting lexvault server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Schema is managed by cmd/migrate.
	if err := database.Ping(context.Background(), db); err != nil {
		logger.Error("database not reachable", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, reprocessing disabled", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	// Initialize Asynq client for background job enqueuing
	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
	}

	// Initialize services
	services, err := app.New(context.Background(), cfg, db, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService, services.Recorder, logger)
	if cfg.JWT.Secret == "change-me-in-production" && !cfg.Server.IsDevelopment() {
		logger.Warn("JWT_SECRET is the default value")
	}

	routerCfg := api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		Cases:          services.Cases,
		Ingester:       services.Ingest,
		Chat:           services.Chat,
		Admin:          services.Admin,
		AuditReader:    services.AuditReader,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
	}
	if asynqClient != nil {
		routerCfg.Queue = asynqClient
	}

	// Create router
	router := api.NewRouter(routerCfg)

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Close Asynq client
	if asynqClient != nil {
		asynqClient.Close()
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	services.Close()
	database.Close(db)

	logger.Info("server stopped")
}
