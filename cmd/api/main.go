package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filing-backend/infrastructure/config"
	"filing-backend/infrastructure/di"

	"go.uber.org/zap"
)

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration: defaults, config files, then environment
	loader := config.NewLoader(envOr("CONFIG_DIR", "config"), envOr("ENVIRONMENT", config.Development))
	cfg, sources, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger
	logger.Info("Configuration loaded", zap.Strings("sources", sources))

	container.Cache.Start()

	// Hot reload cache TTLs in development
	if cfg.IsDevelopment() {
		watcher := config.NewWatcher(loader, cfg, logger)
		watcher.OnChange(func(next *config.Config) {
			container.Repository.SetTTLs(next.Cache.TTL, next.Cache.RelationsTTL)
			ttl, relationsTTL := container.Repository.TTLs()
			logger.Info("Cache TTLs updated",
				zap.Duration("ttl", ttl),
				zap.Duration("relations_ttl", relationsTTL),
			)
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("Configuration hot reload unavailable", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("cache_provider", cfg.Cache.Provider),
			zap.String("store_provider", cfg.Store.Provider),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Clean up resources: cache, redis, tracing, logger
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to release resources: %v", err)
	}

	log.Println("Server stopped")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
