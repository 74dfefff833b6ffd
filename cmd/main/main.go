package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/adapter"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/config"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/ingestion"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/server"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/storage"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/usecase"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("Starting Daisi Webhook Ingestor",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("relay_enabled", cfg.Relay.Enabled),
	)

	// Initialize repository
	postgresRepo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Create service and router
	service := usecase.NewWebhookService(postgresRepo, postgresRepo, postgresRepo, postgresRepo, postgresRepo)
	registry := adapter.NewDefaultRegistry()
	router := ingestion.NewRouter(registry, service)

	// Create HTTP server
	httpServer := server.NewServer(cfg.Server.Port, router, logger.Log)

	// Register metrics handler if enabled BEFORE starting the server
	if cfg.Metrics.Enabled {
		httpServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Server.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	httpServer.Start()

	logger.Log.Info("Webhook endpoints available",
		zap.String("webhooks", fmt.Sprintf("http://localhost:%d/v1/webhooks/{platform}", cfg.Server.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Server.Port)),
	)

	// Optionally start the JetStream relay consumer
	var relay *ingestion.RelayConsumer
	if cfg.Relay.Enabled {
		relay, err = ingestion.NewRelayConsumer(cfg, router)
		if err != nil {
			logger.Log.Fatal("Failed to initialize relay consumer", zap.Error(err))
		}
		if err := relay.Setup(); err != nil {
			logger.Log.Fatal("Failed to set up relay consumer", zap.Error(err))
		}
	}

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup

	numComponents := 2 // HTTP server, database
	if relay != nil {
		numComponents++
	}
	wg.Add(numComponents)

	if relay != nil {
		utils.SafeGo(func() {
			defer wg.Done()
			logger.Log.Info("[shutdown] Stopping relay consumer")
			start := time.Now()
			relay.Stop()
			logger.Log.Info("[shutdown] Relay consumer stopped",
				zap.Duration("duration", time.Since(start)))
		}, func(r interface{}, stack []byte) {
			logger.Log.Error("[shutdown] Panic while stopping relay consumer",
				zap.Any("panic", r),
				zap.ByteString("stack", stack),
			)
			wg.Done()
		})
	}

	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping webhook HTTP server")
		start := time.Now()
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping webhook HTTP server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Webhook HTTP server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping webhook HTTP server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Closing database connection")
		start := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error closing database connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Database connection closed",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing database connection",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait for all components to stop, or the timeout to hit
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("Graceful shutdown complete")
	case <-shutdownCtx.Done():
		logger.Log.Warn("Graceful shutdown timed out, exiting anyway")
	}
}
