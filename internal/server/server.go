// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	_ "worldnews/docs" // swagger docs
	"worldnews/internal/cache"
	"worldnews/internal/config"
	"worldnews/internal/database"
	"worldnews/internal/featureflags"
	"worldnews/internal/middleware"
	"worldnews/internal/models"
	"worldnews/internal/notifications"
	"worldnews/internal/repository"
	"worldnews/internal/service"
	"worldnews/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	stopThemeWatch func()
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	settingRepo    repository.SettingRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	publisher      *notifications.Publisher
	media          *storage.LocalStore
	featureFlags   *featureflags.Manager
	postService    *service.PostService
	userService    *service.UserService
	themeService   *service.ThemeService
	imageService   *service.ImageService
	shareLinks     *service.ShareLinks
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewServerWithDeps(cfg, db, cache.Connect(cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, token revocation and cross-instance events
// are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	media, err := storage.NewLocalStore(cfg.MediaDir, "/media")
	if err != nil {
		return nil, err
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("worldnews-api"),
		userRepo:       repository.NewUserRepository(db, redisClient),
		postRepo:       repository.NewPostRepository(db, redisClient),
		settingRepo:    repository.NewSettingRepository(db),
		hub:            notifications.NewHub(),
		media:          media,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}
	server.publisher = notifications.NewPublisher(server.hub, server.notifier)

	server.postService = service.NewPostService(server.postRepo, server.publisher, cfg.MaxUploadBytes())
	server.userService = service.NewUserService(
		server.userRepo,
		service.NewTokenManager(cfg.JWTSecret, service.DefaultTokenTTL),
		redisClient,
		server.featureFlags,
		server.publisher,
	)
	server.themeService = service.NewThemeService(server.settingRepo, redisClient, server.notifier, server.publisher)
	server.imageService = service.NewImageService(media, cfg.MaxUploadBytes())
	server.shareLinks = service.NewShareLinks(cfg.PublicBaseURL)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Uploaded images are embedded by the front-end from another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "WorldNews Backend Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded media
	app.Static("/media", s.media.Root(), fiber.Static{MaxAge: 86400})

	// Reference data and theme
	meta := api.Group("/meta")
	meta.Get("/countries", s.GetCountries)
	meta.Get("/categories", s.GetCategories)
	api.Get("/theme", s.GetTheme)
	api.Get("/theme.css", s.GetThemeCSS)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/guest", middleware.RateLimit(
		s.redis, 20, 5*time.Minute, "guest"), s.GuestLogin)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Public reads. A bearer token, when present, personalizes the response.
	// OptionalAuth stays per route: a group Use would run it for every later /api route.
	optional := s.OptionalAuth()
	api.Get("/posts", optional, s.GetPosts)
	api.Get("/posts/:id/share", optional, s.SharePost)
	api.Get("/posts/:id", optional, s.GetPost)
	api.Get("/feed/compare", optional, s.CompareFeeds)
	api.Get("/users/:id/posts", optional, s.GetUserPosts)

	// Realtime. Registered ahead of the protected group, whose middleware
	// applies to every /api route that follows it.
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.WebSocketUpgrade(), s.WebsocketHandler())

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/:id", s.GetUserProfile)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", middleware.RateLimit(
		s.redis, 60, time.Minute, "like"), s.ToggleLike)
	posts.Post("/:id/status", s.TogglePostStatus)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	protected.Patch("/theme", s.AdminRequired(), s.UpdateTheme)

	protected.Post("/images", middleware.RateLimit(
		s.redis, 20, 10*time.Minute, "upload"), s.UploadImage)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/users", s.AdminListUsers)
	admin.Post("/users/:id/status", s.AdminSetUserStatus)
	admin.Delete("/users/:id", s.AdminDeleteUser)
	admin.Get("/posts", s.AdminListPosts)
	admin.Post("/posts/:id/status", s.AdminSetPostStatus)
	admin.Delete("/posts/:id", s.AdminDeletePost)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it the service runs single-instance.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "WorldNews API",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired rejects requests without a valid bearer token. Guest tokens
// pass; the service layer keeps guests read-only.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		actor, err := s.userService.ResolveActor(c.UserContext(), token)
		if err != nil {
			return s.respondError(c, err)
		}
		setActor(c, actor)
		return c.Next()
	}
}

// OptionalAuth attaches the actor when a valid bearer token is sent and lets
// anonymous requests through.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if actor, err := s.userService.ResolveActor(c.UserContext(), token); err == nil {
				setActor(c, actor)
			}
		}
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that the actor is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !service.IsAdmin(actorFrom(c)) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func setActor(c *fiber.Ctx, actor service.Actor) {
	c.Locals("actor", actor)
	c.Locals("userID", actor.UserID)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, actor.UserID)
	c.SetUserContext(ctx)
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "WorldNews API",
		BodyLimit: int(s.config.MaxUploadBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("failed to start hub wiring: %v", err)
		}
		stop, err := s.themeService.Watch(s.shutdownCtx)
		if err != nil {
			log.Printf("failed to watch theme changes: %v", err)
		} else {
			s.stopThemeWatch = stop
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	if s.stopThemeWatch != nil {
		s.stopThemeWatch()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down hub: %v", err)
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
