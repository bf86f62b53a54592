package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docutag/visitor"
	"github.com/docutag/visitor/api"
	"github.com/docutag/visitor/config"
	"github.com/docutag/visitor/metrics"
	"github.com/docutag/visitor/storage"
	"github.com/docutag/visitor/tracing"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// A missing .env file is normal outside local development
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	logger.Info("visitor service initializing", "version", "1.0.0")

	// Command-line flags (override environment variables and the config file)
	configPath := flag.String("config", getEnv("VISITOR_CONFIG", ""), "Path to a YAML config file")
	addr := flag.String("addr", "", "Listen address (default from config, then :8080)")
	workDir := flag.String("working-dir", "", "Directory acquired images are written to")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}
	if *workDir != "" {
		cfg.WorkingDirectory = *workDir
	}

	visitorConfig, err := visitor.ConfigFrom(cfg)
	if err != nil {
		logger.Error("invalid visitor configuration", "error", err)
		os.Exit(1)
	}

	// Initialize tracing
	tp, err := tracing.InitTracer("visitor")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	serverConfig := api.Config{
		Addr:          cfg.API.Addr,
		VisitorConfig: visitorConfig,
		StoragePath:   cfg.WorkingDirectory,
		CORSEnabled:   cfg.CORSEnabled() && !*disableCORS,
		Metrics:       metrics.NewVisitorMetrics("visitor"),
		Logger:        logger,
	}

	// Optional S3 mirror of acquired images
	if cfg.S3.Enabled() {
		mirror, err := storage.NewS3Mirror(context.Background(), cfg.S3)
		if err != nil {
			logger.Error("failed to initialize S3 mirror", "bucket", cfg.S3.Bucket, "error", err)
			os.Exit(1)
		}
		serverConfig.Mirror = mirror
		logger.Info("S3 mirror enabled", "bucket", cfg.S3.Bucket, "endpoint", cfg.S3.Endpoint)
	}

	// Create server
	server, err := api.NewServer(serverConfig)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Start server in a goroutine
	go func() {
		logger.Info("visitor service starting",
			"addr", cfg.API.Addr,
			"working_directory", server.Storage().BasePath(),
			"profile", visitorConfig.Profile,
			"max_links", cfg.Budgets.MaxLinks.String(),
			"max_images", cfg.Budgets.MaxImages.String(),
			"content_limit", cfg.Budgets.ContentLimit.String(),
			"cors_enabled", serverConfig.CORSEnabled,
		)

		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
