// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"log"
	"strings"
	"time"

	"docvault/internal/authz"
	"docvault/internal/bootstrap"
	"docvault/internal/config"
	"docvault/internal/middleware"
	"docvault/internal/models"
	"docvault/internal/repository"
	"docvault/internal/service"
	"docvault/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const maxUploadBytes = 50 * 1024 * 1024

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	docRepo        repository.DocumentRepository
	requestRepo    repository.DownloadRequestRepository
	blobs          *storage.BlobStore
	lifecycle      *service.UserLifecycleService
	documents      *service.DocumentService
	release        *service.ReleaseService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	blobs := storage.NewBlobStore(cfg.StorageRoot)
	if err := blobs.EnsureRoot(); err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	requestRepo := repository.NewDownloadRequestRepository(db)

	prom := middleware.InitMetrics("docvault-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		docRepo:        docRepo,
		requestRepo:    requestRepo,
		blobs:          blobs,
	}
	server.lifecycle = service.NewUserLifecycleService(userRepo)
	server.documents = service.NewDocumentService(docRepo, requestRepo, blobs)
	server.release = service.NewReleaseService(requestRepo, docRepo, cfg.ApprovalTTL())

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS must run before the auth middleware so preflight requests are
	// answered without a bearer token.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:5173,http://127.0.0.1:5173,http://localhost:8080,http://127.0.0.1:8080",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/healthz", s.Healthz)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Public auth routes
	auth := app.Group("/auth")
	auth.Post("/login", s.Login)
	auth.Post("/register", s.Register)

	// Everything else requires a bearer token
	protected := app.Group("", s.AuthRequired())

	protected.Get("/me", s.Me)
	protected.Get("/user-directory", s.UserDirectory)

	users := protected.Group("/users")
	// Specific routes before the generic /:id route
	users.Get("/pending", s.AdminRequired(), s.ListPendingUsers)
	users.Get("/", s.AdminRequired(), s.ListUsers)
	users.Post("/", s.AdminRequired(), s.CreateUser)
	users.Post("/:id/approve", s.AdminRequired(), s.ApproveUser)
	users.Post("/:id/disable", s.AdminRequired(), s.DisableUser)
	users.Delete("/:id", s.AdminRequired(), s.DeleteUser)

	docs := protected.Group("/documents")
	docs.Get("/", s.ListDocuments)
	docs.Post("/", s.UploadDocument)
	docs.Get("/:id/download", s.DownloadDocument)
	docs.Post("/:id/download-requests", s.CreateDownloadRequest)
	docs.Patch("/:id", s.PatchDocument)
	docs.Delete("/:id", s.DeleteDocument)

	requests := protected.Group("/download-requests")
	requests.Get("/mine", s.MyDownloadRequests)
	requests.Get("/pending", s.PendingDownloadRequests)
	requests.Post("/:id/approve", s.ApproveDownloadRequest)
	requests.Post("/:id/reject", s.RejectDownloadRequest)
}

// Healthz reports liveness plus a database ping.
func (s *Server) Healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"checks": fiber.Map{
			"database": dbStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. It validates the
// bearer token and stores the principal in locals; role comes from the
// token, so disabling a user does not cut off outstanding sessions.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}
		role, ok := claims["role"].(string)
		if !ok || !models.Role(role).Valid() {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid role claim"))
		}

		c.Locals("userID", sub)
		c.Locals("role", role)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, sub)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin principals with
// 403. Must be placed after AuthRequired so the role local is available.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.principal(c).IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// principal builds the authenticated principal from locals set by AuthRequired.
func (s *Server) principal(c *fiber.Ctx) authz.Principal {
	p := authz.Principal{}
	if id, ok := c.Locals("userID").(string); ok {
		p.ID = id
	}
	if role, ok := c.Locals("role").(string); ok {
		p.Role = models.Role(role)
	}
	return p
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "DocVault API",
		BodyLimit: maxUploadBytes,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on %s...", s.config.BindAddr)
	return app.Listen(s.config.BindAddr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
