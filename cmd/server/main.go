package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sbsidd17/yt-dl-api/internal/api"
	"github.com/sbsidd17/yt-dl-api/internal/api/handler"
	mw "github.com/sbsidd17/yt-dl-api/internal/api/middleware"
	"github.com/sbsidd17/yt-dl-api/internal/config"
	"github.com/sbsidd17/yt-dl-api/internal/cookies"
	"github.com/sbsidd17/yt-dl-api/internal/extractor"
	"github.com/sbsidd17/yt-dl-api/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("yt-dl-api %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting yt-dl-api",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Cookies.TempDir != "" {
		if err := os.MkdirAll(cfg.Cookies.TempDir, 0700); err != nil {
			logger.Error("failed to create cookie temp directory", "error", err)
			os.Exit(1)
		}
	}

	// Initialize dependencies
	ex, err := extractor.New(cfg.Extractor, logger)
	if err != nil {
		logger.Error("failed to create extractor", "error", err)
		os.Exit(1)
	}
	if y, ok := ex.(*extractor.YTDLP); ok && cfg.Extractor.AutoInstall {
		installCtx, cancelInstall := context.WithTimeout(context.Background(), 5*time.Minute)
		err := y.Install(installCtx)
		cancelInstall()
		if err != nil {
			logger.Error("failed to install yt-dlp", "error", err)
			os.Exit(1)
		}
	}
	if err := ex.Available(context.Background()); err != nil {
		// Keep serving; /ready reports the problem.
		logger.Warn("extractor not available", "extractor", ex.Name(), "error", err)
	}

	cookieSrc, err := cookies.New(cfg.Cookies, cfg.Extractor.UserAgent)
	if err != nil {
		logger.Error("failed to create cookie source", "error", err)
		os.Exit(1)
	}

	history, err := service.NewHistoryService(service.HistoryServiceConfig{
		RingBufferSize: cfg.History.Size,
		SQLitePath:     cfg.History.SQLitePath,
		RetentionDays:  cfg.History.RetentionDays,
	}, logger)
	if err != nil {
		logger.Error("failed to create history service", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	// Prune persisted history in background
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	go history.RunCleanup(cleanupCtx, 24*time.Hour)

	// Initialize services
	extractSvc := service.NewExtractService(ex, cookieSrc, history, cfg.Extractor.MaxConcurrent, logger)

	logger.Info("extraction configured",
		"extractor", ex.Name(),
		"cookie_source", cookieSrc.Kind(),
		"history_persistent", history.Persistent(),
	)

	// Initialize handlers
	downloadHandler := handler.NewDownloadHandler(extractSvc, logger)
	historyHandler := handler.NewHistoryHandler(history, logger)
	healthHandler := handler.NewHealthHandler(ex, history, cfg.Cookies.TempDir)

	// Setup router
	router := api.NewRouter(downloadHandler, historyHandler, healthHandler, api.RouterConfig{
		APIKey:         cfg.Server.APIKey,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimiter:    mw.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		TrustProxy:     cfg.Server.TrustProxy,
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Cancel background tasks
	cancelCleanup()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests; in-flight extractions finish first
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
