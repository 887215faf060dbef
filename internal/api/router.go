package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/lexvault/internal/admin"
	"github.com/hugh/lexvault/internal/api/handlers"
	"github.com/hugh/lexvault/internal/api/middleware"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/auth"
	"github.com/hugh/lexvault/internal/cases"
	"github.com/hugh/lexvault/internal/chat"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/tasks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	JWTService  *auth.JWTService
	AuthService *auth.Service
	Cases       *cases.Service
	Ingester    handlers.Ingester
	Chat        *chat.Service
	Admin       *admin.Service
	AuditReader *audit.Reader
	// Queue enables document reprocessing; leave nil to disable it.
	Queue          tasks.Enqueuer
	MaxUploadBytes int64
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Origin)

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Logger)
	caseHandler := handlers.NewCaseHandler(cfg.Cases, cfg.Logger)
	documentHandler := handlers.NewDocumentHandler(cfg.Cases, cfg.Ingester, cfg.Queue, cfg.MaxUploadBytes, cfg.Logger)
	chatHandler := handlers.NewChatHandler(cfg.Chat, cfg.Logger)
	adminHandler := handlers.NewAdminHandler(cfg.Admin, cfg.Logger)
	auditHandler := handlers.NewAuditHandler(cfg.AuditReader, cfg.Logger)

	// Health and metrics endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.AuthService))

			r.Get("/me", authHandler.Me)

			// Cases endpoints
			r.Route("/cases", func(r chi.Router) {
				r.Get("/", caseHandler.List)
				r.Post("/", caseHandler.Create)
				r.Get("/{id}", caseHandler.Get)
				r.Delete("/{id}", caseHandler.Delete)
				r.Get("/{id}/documents", documentHandler.ListByCase)
				r.Post("/{id}/documents", documentHandler.UploadToCase)
				r.Get("/{id}/messages", chatHandler.History)
				r.Post("/{id}/messages", chatHandler.Send)
			})

			// Documents endpoints
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", documentHandler.Upload)
				r.Get("/{id}", documentHandler.Get)
				r.Get("/{id}/download", documentHandler.Download)
				r.Post("/{id}/reprocess", documentHandler.Reprocess)
			})

			// Administration endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleSuperAdmin, models.RoleOrgAdmin))

				r.Get("/organizations", adminHandler.ListOrganizations)
				r.Post("/organizations", adminHandler.CreateOrganization)
				r.Post("/organizations/{id}/deactivate", adminHandler.DeactivateOrganization)
				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users", adminHandler.CreateUser)
				r.Get("/audit-logs", auditHandler.List)
			})
		})
	})

	return &Router{r}
}
