package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matchvision/pov-overlay/server/cache"
	"github.com/matchvision/pov-overlay/server/config"
	"github.com/matchvision/pov-overlay/server/handlers"
	"github.com/matchvision/pov-overlay/server/match"
	"github.com/matchvision/pov-overlay/server/middleware"
	"github.com/matchvision/pov-overlay/server/session"
	"github.com/matchvision/pov-overlay/server/tracking"
)

type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	manager     *session.Manager
	datasets    cache.DatasetCache
	rateLimiter *middleware.RateLimiter
	config      *config.Config
}

func main() {
	cfg := config.LoadConfig()

	var logger *zap.Logger
	var err error

	if cfg.Logging.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := cfg.ValidateConfig(logger); err != nil {
		logger.Fatal("Configuration validation failed", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := NewServer(cfg, logger)

	if cfg.Tracking.Preload {
		go server.manager.Preload(context.Background())
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.manager.Shutdown(10 * time.Second); err != nil {
		logger.Error("Failed to shutdown session manager", zap.Error(err))
	}

	if server.rateLimiter != nil {
		server.rateLimiter.Shutdown()
	}

	if server.datasets != nil {
		if err := server.datasets.Close(); err != nil {
			logger.Error("Failed to close dataset cache", zap.Error(err))
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	datasets := cache.NewMemoryCache(cfg.Tracking.CacheSize, cfg.Tracking.DatasetTTL, logger)

	store := tracking.NewStore(tracking.StoreOptions{
		DataDir:      cfg.Tracking.DataDir,
		FetchTimeout: cfg.Tracking.FetchTimeout,
		Retries:      cfg.Tracking.FetchRetries,
		RetryDelay:   cfg.Tracking.RetryDelay,
	}, logger)

	catalog := match.DefaultCatalog()

	manager := session.NewManager(session.ManagerConfig{
		DriftTolerance: cfg.Sync.DriftTolerance,
		SessionTTL:     cfg.Sync.SessionTTL,
		LoadWorkers:    cfg.Tracking.LoadWorkers,
		LoadQueue:      cfg.Tracking.LoadQueue,
	}, store, datasets, catalog, logger)

	rateLimiter := middleware.NewRateLimiter(
		cfg.Server.RateLimitRPS,
		cfg.Server.RateLimitBurst,
		logger,
	)

	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.Server.MaxRequestSize))

	gamesHandler := handlers.NewGamesHandler(catalog, logger)
	sessionHandler := handlers.NewSessionHandler(manager, logger)
	wsHandler := handlers.NewWebSocketHandler(manager, logger)

	setupRoutes(router, gamesHandler, sessionHandler, wsHandler, rateLimiter)

	return &Server{
		router:      router,
		logger:      logger,
		manager:     manager,
		datasets:    datasets,
		rateLimiter: rateLimiter,
		config:      cfg,
	}
}

func setupRoutes(router *gin.Engine, games *handlers.GamesHandler, sessions *handlers.SessionHandler, ws *handlers.WebSocketHandler, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", middleware.HealthCheck())

	router.GET("/ws/sessions/:id", rateLimiter.RateLimit(), ws.Handle)

	api := router.Group("/api/v1")
	api.Use(rateLimiter.RateLimit())
	{
		api.GET("/health", middleware.HealthCheck())

		api.GET("/games", games.List)
		api.GET("/games/:id", games.Get)

		api.POST("/sessions", sessions.Create)
		api.GET("/sessions/:id", sessions.Status)
		api.GET("/sessions/:id/overlay", sessions.Overlay)
		api.GET("/sessions/:id/stats", sessions.Stats)
	}
}
