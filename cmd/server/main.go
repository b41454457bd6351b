package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterpham171289-blip/promptmaster/internal/api"
	"github.com/peterpham171289-blip/promptmaster/internal/infra/config"
	"github.com/peterpham171289-blip/promptmaster/internal/infra/httpclient"
	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/internal/service/gemini"
	"github.com/peterpham171289-blip/promptmaster/internal/service/imagegen"
	"github.com/peterpham171289-blip/promptmaster/internal/service/orchestrator"
	"github.com/peterpham171289-blip/promptmaster/internal/service/videogen"
	"github.com/peterpham171289-blip/promptmaster/internal/snapshot"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init logger
	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Gemini.APIKey == "" {
		zapLogger.Warn("GEMINI_API_KEY is not set; proxy requests will fail with a configuration error")
	}

	// Init HTTP client
	httpClient := httpclient.New(httpclient.Options{
		Timeout:    time.Duration(cfg.HTTPClient.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.HTTPClient.MaxRetries,
	})

	// Init services
	geminiSvc := gemini.New(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, httpClient, zapLogger)
	imageSvc := imagegen.New(cfg.Gemini.APIKey, cfg.Image.Model, cfg.Gemini.BaseURL, httpClient, zapLogger)
	videoSvc := videogen.New(
		cfg.Gemini.APIKey,
		cfg.Video.Model,
		cfg.Gemini.BaseURL,
		time.Duration(cfg.Video.PollIntervalSeconds)*time.Second,
		cfg.Video.MaxPollAttempts,
		httpClient,
		zapLogger,
	)
	store := snapshot.NewStore(cfg.Snapshot.BasePath, zapLogger)

	// Init orchestrator
	orch := orchestrator.New(geminiSvc, imageSvc, videoSvc, zapLogger)

	// Init router
	handler := api.NewHandler(orch, store, cfg.Gemini.APIKey, zapLogger)
	router := api.NewRouter(handler, cfg.CORS.AllowedOrigins, zapLogger)

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	// Start server
	go func() {
		zapLogger.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server forced to shutdown", "error", err)
	}
	zapLogger.Info("server stopped")
}
