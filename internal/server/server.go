// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"wendle/internal/cache"
	"wendle/internal/changefeed"
	"wendle/internal/config"
	"wendle/internal/database"
	"wendle/internal/feed"
	"wendle/internal/middleware"
	"wendle/internal/observability"
	"wendle/internal/realtime"
	"wendle/internal/repository"
	"wendle/internal/service"
	"wendle/internal/storage"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	broker *changefeed.Broker
	hub    *realtime.Hub

	profileRepo repository.ProfileRepository
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository
	reportRepo  repository.ReportRepository

	authService    *service.AuthService
	postService    *service.PostService
	commentService *service.CommentService
	feedService    *service.FeedService
	followService  *service.FollowService
	profileService *service.ProfileService
	reportService  *service.ReportService
	imageService   *service.ImageService

	// publicFeed serves unauthenticated feed reads from a mounted,
	// change-driven snapshot instead of hitting the store per request.
	publicFeed *feed.FeedView
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	blobs, err := storage.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("media store init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.GetClient(), blobs)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use this with an in-memory database and no Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs storage.BlobStore) (*Server, error) {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: fiberprometheus.New("wendle-api"),
	}

	s.broker = changefeed.NewBroker(redisClient, observability.GlobalLogger.Logger)

	s.profileRepo = repository.NewProfileRepository(db)
	s.postRepo = repository.NewPostRepository(db)
	s.likeRepo = repository.NewLikeRepository(db)
	s.commentRepo = repository.NewCommentRepository(db)
	s.followRepo = repository.NewFollowRepository(db)
	s.reportRepo = repository.NewReportRepository(db)

	images := service.NewImageService(blobs, cfg.MaxImageBytes)
	s.authService = service.NewAuthService(s.profileRepo, cfg.JWTSecret)
	s.postService = service.NewPostService(s.postRepo, s.likeRepo, s.broker)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.broker)
	s.feedService = service.NewFeedService(s.postRepo, s.likeRepo, s.commentRepo, cfg.FeedLimit)
	s.followService = service.NewFollowService(s.followRepo, s.profileRepo, s.broker)
	s.profileService = service.NewProfileService(s.profileRepo, images, s.broker)
	s.reportService = service.NewReportService(s.reportRepo, s.postRepo, s.profileRepo)

	s.imageService = images

	s.hub = realtime.NewHub()
	s.hub.AttachBroker(s.broker)

	s.publicFeed = feed.NewFeedView(s.feedService.Fetch(0), s.broker, observability.GlobalLogger.Logger)

	middleware.InitMiddleware(cfg)

	return s, nil
}

// Start mounts middleware, routes, and the changefeed bridge, then listens.
func (s *Server) Start(ctx context.Context) error {
	app := s.BuildApp(ctx)
	return app.Listen(":" + s.config.Port)
}

// BuildApp assembles the fiber application without listening. Split out so
// tests can drive the full stack through app.Test.
func (s *Server) BuildApp(ctx context.Context) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "wendle",
		BodyLimit: int(s.config.MaxImageBytes) + 1<<20,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if err := s.broker.StartBridge(ctx); err != nil {
		observability.GlobalLogger.Error("changefeed bridge failed", "error", err)
	}
	s.publicFeed.Mount(ctx)

	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(s.config.MediaBaseURL, s.config.MediaDir)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.Login)

	api.Get("/feed", middleware.OptionalAuth, s.GetFeed)

	publicPosts := api.Group("/posts")
	publicPosts.Get("/:id/comments", middleware.OptionalAuth, s.GetComments)
	publicPosts.Get("/:id", s.GetPost)

	profiles := api.Group("/profiles")
	profiles.Get("/:username", s.GetProfile)
	profiles.Get("/:username/posts", s.GetProfilePosts)
	profiles.Get("/:username/relationship", middleware.OptionalAuth, s.GetRelationship)

	ws := api.Group("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, middleware.WebSocketOptionalAuth)
	ws.Get("/changes", s.WebsocketChangesHandler())

	// Everything past this point requires a viewer identity.
	protected := api.Group("", middleware.AuthRequired)
	protected.Get("/me", s.GetMyProfile)
	protected.Put("/me", s.UpdateMyProfile)
	protected.Put("/me/avatar", s.UpdateMyAvatar)
	protected.Delete("/me", s.DeleteMyAccount)

	posts := protected.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Post("/:id/comments", s.CreateComment)
	posts.Delete("/:id", s.DeletePost)

	protected.Delete("/comments/:id", s.DeleteComment)
	protected.Post("/profiles/:username/follow", s.ToggleFollow)

	protected.Post("/reports", s.CreateReport)
	protected.Get("/reports", s.ListReports)
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

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown closes websocket connections and stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.publicFeed.Unmount()
	if err := s.hub.Shutdown(ctx); err != nil {
		observability.GlobalLogger.Error("hub shutdown failed", "error", err)
	}
	if s.app != nil {
		return s.app.ShutdownWithContext(ctx)
	}
	return nil
}
