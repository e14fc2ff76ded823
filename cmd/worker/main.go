package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/binyominzeev/vidfaq/internal/cache"
	"github.com/binyominzeev/vidfaq/internal/config"
	"github.com/binyominzeev/vidfaq/internal/database"
	"github.com/binyominzeev/vidfaq/internal/fetcher"
	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/internal/queue"
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

	_, closer, err := tracing.InitTracer(cfg.Tracing.Enabled, cfg.Tracing.ServiceName+"-worker", cfg.Tracing.Endpoint)
	if err != nil {
		logger.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer closer.Close()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port + 1)
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

	repo := database.NewRepository(db, logger)

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	worker := &CaptionWorker{
		captions: fetcher.New(cfg.Fetcher),
		entries:  repo,
		logger:   logger,
	}

	if cfg.Cache.Enabled {
		c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to cache: %v", err)
		}
		defer c.Close()
		worker.views = c
		worker.locks = c
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	// Start consuming jobs
	logger.Info("Worker started, waiting for caption jobs...")
	if err := q.ConsumeCaptionJobs(ctx, worker.Handle); err != nil {
		logger.Fatalf("Failed to consume jobs: %v", err)
	}

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("Worker stopped")
}
