package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/binyominzeev/vidfaq/internal/cache"
	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/config"
	"github.com/binyominzeev/vidfaq/internal/database"
	"github.com/binyominzeev/vidfaq/internal/fetcher"
	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/internal/middleware"
	"github.com/binyominzeev/vidfaq/internal/profile"
	"github.com/binyominzeev/vidfaq/internal/public"
	"github.com/binyominzeev/vidfaq/internal/queue"
	"github.com/binyominzeev/vidfaq/internal/storage"
	"github.com/binyominzeev/vidfaq/internal/tenant"
	"github.com/binyominzeev/vidfaq/internal/tracing"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	// Initialize tracing
	_, closer, err := tracing.InitTracer(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		logger.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer closer.Close()

	// Start metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server failed", err)
			}
		}()
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := db.Migrate(migrateCtx); err != nil {
		cancelMigrate()
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	cancelMigrate()

	repo := database.NewRepository(db, logger)

	// Initialize storage
	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	fetch := fetcher.New(cfg.Fetcher)
	thumbnails := fetcher.NewThumbnailStore(fetch, stor, stor.Bucket(), logger)

	deps := collection.Dependencies{
		Store:      repo,
		Profiles:   repo,
		Thumbnails: thumbnails,
		Captions:   q,
		Logger:     logger,
	}
	var (
		profileViews  profile.Invalidator
		galleryCache  public.GalleryCache
		profileCache  public.ProfileCache
		quotaCounters middleware.QuotaChecker
	)

	// Initialize cache
	if cfg.Cache.Enabled {
		c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to cache: %v", err)
		}
		defer c.Close()
		c.WithTTL(cfg.Cache.GalleryTTL, cfg.Cache.ProfileTTL)

		deps.Views = c
		profileViews = c
		galleryCache = c
		profileCache = c
		quotaCounters = c
	}

	directory := public.NewDirectory(repo, profileCache, logger)
	resolver := tenant.NewResolver(directory, cfg.Tenant.OperatorLabels)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go limiter.Cleanup(cleanupCtx)

	api := &API{
		collection: collection.NewService(collection.Config{
			DefaultVideoLimit: cfg.Collection.DefaultVideoLimit,
			FetchTimeout:      cfg.Fetcher.ThumbnailTimeout,
		}, deps),
		profiles:   profile.NewService(repo, cfg.Collection.DefaultVideoLimit, resolver, profileViews, logger),
		public:     public.NewService(repo, galleryCache, logger),
		tenants:    resolver,
		thumbnails: stor,
		health:     db,
		auth:       middleware.NewAuthenticator(cfg.Auth.JWTSecret),
		limiter:    limiter,
		quota:      quotaCounters,
		baseDomain: cfg.Tenant.BaseDomain,
		logger:     logger,
	}

	// Setup router
	router := setupRouter(api)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.ErrorWithErr("Metrics server forced to shutdown", err)
		}
	}

	logger.Info("Server stopped")
}
