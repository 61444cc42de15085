package main

import (
	"log"

	"github.com/artport/backend/config"
	"github.com/artport/backend/internal/auth"
	"github.com/artport/backend/internal/cache"
	"github.com/artport/backend/internal/database"
	"github.com/artport/backend/internal/handlers"
	"github.com/artport/backend/internal/lifecycle"
	"github.com/artport/backend/internal/metrics"
	"github.com/artport/backend/internal/middleware"
	"github.com/artport/backend/internal/models"
	"github.com/artport/backend/internal/repository"
	"github.com/artport/backend/internal/video"
	"github.com/artport/backend/internal/viewers"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Connect to Redis
	redis, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Running without Redis - session locking and live viewer counts will be limited")
		redis = nil
	} else {
		defer redis.Close()
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	m := metrics.New()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	artistRepo := repository.NewArtistRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	// Video platform adapters behind the common port
	muxPlatform := video.NewMuxPlatform(cfg.Video.MuxTokenID, cfg.Video.MuxTokenSecret)
	platforms := map[string]video.Platform{
		models.ProviderMux:        muxPlatform,
		models.ProviderSelfHosted: video.NewSelfHosted(),
	}

	// Lifecycle service: the single write path for session transitions
	var locker lifecycle.Locker
	if redis != nil {
		locker = redis
	}
	lifecycleService := lifecycle.NewService(sessionRepo, ledgerRepo, locker)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userRepo, jwtService)
	artistHandler := handlers.NewArtistHandler(artistRepo, ledgerRepo)
	streamHandler := handlers.NewStreamHandler(sessionRepo, artistRepo, lifecycleService, platforms, m)
	webhookHandler := handlers.NewWebhookHandler(sessionRepo, lifecycleService, m, cfg.Video.WebhookSecret)
	reconcileHandler := handlers.NewReconcileHandler(sessionRepo, lifecycleService, muxPlatform, m)

	// Viewer presence hub
	hub := viewers.NewHub(redis, sessionRepo)
	go hub.Run()
	watchHandler := viewers.NewHandler(hub, sessionRepo, cfg.CORS.AllowedOrigins)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitRequestsPerSec)
	rateLimiter.Cleanup()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Health check and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler(func() {
		if sessions, err := sessionRepo.GetActiveSessions(0); err == nil {
			m.SetLiveSessions(len(sessions))
		}
	})))

	// Public routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Provider webhooks and the reconciliation poller
	router.POST("/webhooks/video", middleware.IPRateLimitMiddleware(rateLimiter), webhookHandler.Handle)
	router.POST("/internal/streams/reconcile", reconcileHandler.Reconcile)

	// Watch endpoint (websocket, anonymous)
	router.GET("/streams/:id/watch", watchHandler.HandleWatch)

	// Public browse routes
	router.GET("/artists/:slug", artistHandler.GetArtist)

	// Protected routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService))
	{
		// User routes
		api.GET("/me", authHandler.GetMe)

		// Artist routes
		api.POST("/artists", artistHandler.CreateArtist)
		api.GET("/artists/me/balance", artistHandler.GetMinuteBalance)

		// Stream routes
		api.POST("/streams", middleware.RateLimitMiddleware(rateLimiter), streamHandler.CreateStream)
		api.GET("/streams", streamHandler.GetActiveStreams)
		api.GET("/streams/:id", streamHandler.GetStream)
		api.POST("/streams/end", middleware.RateLimitMiddleware(rateLimiter), streamHandler.EndStream)
		api.POST("/streams/cancel", middleware.RateLimitMiddleware(rateLimiter), streamHandler.CancelStream)
	}

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Starting Artport server on %s (env: %s)", addr, cfg.Server.Env)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
