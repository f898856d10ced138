// Package server contains the HTTP and WebSocket handlers of the API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"socialrank/internal/cache"
	"socialrank/internal/config"
	"socialrank/internal/database"
	"socialrank/internal/middleware"
	"socialrank/internal/models"
	"socialrank/internal/notifications"
	"socialrank/internal/repository"
	"socialrank/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
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
	store          repository.Store
	notifier       *notifications.Notifier
	dispatcher     *notifications.Dispatcher
	ledger         *service.StatsLedger
	leaderboard    *service.LeaderboardService
	relationships  *service.RelationshipService
	postService    *service.PostService
	userService    *service.UserService
	tokenService   *service.DeviceTokenService
}

// NewServer connects the database and Redis and wires the push channel when enabled.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	var channels []notifications.Channel
	if cfg.PushEnabled {
		client, err := notifications.NewMessagingClient(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notifications.NewPushChannel(client, repository.NewDeviceTokenRepository(db)))
	}

	return NewServerWithDeps(cfg, db, redisClient, channels...), nil
}

// NewServerWithDeps builds a Server over already-initialized dependencies. A
// realtime channel is added when Redis is available.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, channels ...notifications.Channel) *Server {
	middleware.InitMiddleware(cfg)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("socialrank-api"),
		store:          repository.NewStore(db),
	}

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		channels = append(channels, notifications.NewRealtimeChannel(s.notifier))
	}
	s.dispatcher = notifications.NewDispatcher(channels...)

	s.leaderboard = service.NewLeaderboardService(s.store, service.LeaderboardConfig{
		TopN:        cfg.RankingTopN,
		TrendWindow: time.Duration(cfg.TrendWindowHours) * time.Hour,
		CacheTTL:    time.Duration(cfg.LeaderboardCacheSeconds) * time.Second,
	})
	publisher := service.NewEffectPublisher(s.leaderboard, s.dispatcher)
	s.ledger = service.NewStatsLedger(s.store, publisher)
	s.relationships = service.NewRelationshipService(s.store, s.ledger, publisher)
	s.postService = service.NewPostService(s.store, s.ledger, publisher, s.leaderboard)
	s.userService = service.NewUserService(s.store)
	s.tokenService = service.NewDeviceTokenService(s.store)
	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())
	app.Use(middleware.TracingMiddleware())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application. Auth is attached per
// route so public and protected handlers can share a prefix.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	auth := middleware.AuthRequired
	optional := middleware.OptionalAuth

	api := app.Group("/api")
	api.Get("/", s.ReadinessCheck)

	// User routes: literal paths before /:id
	users := api.Group("/users")
	users.Post("/", middleware.SignupLimit.Handler(s.redis), s.CreateUser)
	users.Get("/me", auth, s.GetMyProfile)
	users.Put("/me", auth, s.UpdateMyProfile)
	users.Get("/:id/posts", optional, s.GetUserPosts)
	users.Get("/:id/liked-posts", optional, s.GetLikedPosts)
	users.Delete("/:id/follow", auth, s.UnfollowUser)
	users.Get("/:id", s.GetUserProfile)
	users.Delete("/:id", auth, s.DeleteUser)

	posts := api.Group("/posts")
	posts.Post("/", auth, middleware.CreatePostLimit.Handler(s.redis), s.CreatePost)
	posts.Get("/liked-status", auth, s.GetLikedStatus)
	posts.Delete("/:id/like", auth, s.UnlikePost)
	posts.Get("/:id", optional, s.GetPost)
	posts.Delete("/:id", auth, s.DeletePost)

	likes := api.Group("/likes")
	likes.Post("/", auth, middleware.LikeLimit.Handler(s.redis), s.CreateLike)
	likes.Delete("/:id", auth, s.DeleteLike)

	follows := api.Group("/follows")
	follows.Post("/", auth, middleware.FollowLimit.Handler(s.redis), s.CreateFollow)
	follows.Delete("/:id", auth, s.DeleteFollow)

	api.Get("/timeline", optional, s.GetTimeline)

	search := api.Group("/search", middleware.SearchLimit.Handler(s.redis))
	search.Get("/users", s.SearchUsers)
	search.Get("/posts", optional, s.SearchPosts)

	rankings := api.Group("/rankings")
	rankings.Get("/posts/likes", s.GetPostLikesRanking)
	rankings.Get("/users/total-likes", s.userRanking(models.MetricUserTotalLikes))
	rankings.Get("/users/level", s.userRanking(models.MetricUserLevel))
	rankings.Get("/users/followers", s.userRanking(models.MetricUserFollowers))
	rankings.Get("/:metric/:id", s.GetRank)

	api.Post("/device-token", auth, s.RegisterDeviceToken)
	api.Delete("/device-token", auth, s.RemoveDeviceToken)

	// WebSocket notifications, token in the query string
	api.Get("/ws", middleware.WebSocketAuthRequired, s.WebsocketHandler())
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "socialrank",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	s.app = s.App()

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional: without
// it the API still serves, only without caching and realtime delivery.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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
