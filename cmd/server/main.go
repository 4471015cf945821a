// Command server runs the Luwero crop advisor HTTP API.
//
// @title Luwero Crop Prediction API
// @version 1.0.0
// @description Crop recommendations and farming advice for smallholders in Luwero District.
// @BasePath /
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/advisor"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/cache"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/config"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/database"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/errors"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/monitoring"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/ratelimit"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/resilience"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/security"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Structured logging setup
	appLogger := monitoring.NewLogger(monitoring.ParseLevel(cfg.LogLevel))
	slog.SetDefault(appLogger.Logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// The model is required; a missing or broken artifact stops startup.
	pipeline, err := prediction.LoadPipeline(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
	}
	appLogger.SystemLogger("model_loaded", fmt.Sprintf("%s (%d classes)", cfg.ModelPath, len(pipeline.Classes())))

	appMetrics := monitoring.NewMetrics()
	appMetrics.SetModelClasses(len(pipeline.Classes()))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go monitoring.NewRuntimeSampler(appMetrics, appLogger, 15*time.Second).Run(ctx)

	// Redis is optional; the limiter and cache fall back to memory.
	redisClient, err := ratelimit.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("Continuing without Redis", "error", err)
	}
	defer errors.SafeClose(redisClient, "redis client")

	limiter := ratelimit.NewRateLimiter(redisClient, appMetrics)
	defer errors.SafeClose(limiter, "rate limiter")

	var chatCache cache.Store
	if redisClient.IsEnabled() {
		chatCache = cache.NewRedisCache(redisClient.GetClient(), "chat:", cfg.Chat.CacheTTL, appMetrics)
	} else {
		memCache := cache.NewCache(cfg.Chat.CacheTTL, appMetrics)
		defer errors.SafeClose(memCache, "chat cache")
		chatCache = memCache
	}

	chatClient := advisor.NewClient(advisor.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		BaseURL:     cfg.OpenAI.BaseURL,
		Timeout:     cfg.OpenAI.Timeout,
	}, appLogger)
	defer errors.SafeClose(chatClient, "chat client")
	if !chatClient.Configured() {
		slog.Warn("OPENAI_API_KEY not set, /chat will answer with a configuration error")
	}

	advisorOpts := advisor.DefaultServiceOptions()
	advisorOpts.Breaker.OnStateChange = func(_, to resilience.CircuitBreakerState) {
		switch to {
		case resilience.StateOpen:
			appMetrics.IncrementCircuitBreakerOpen()
		case resilience.StateClosed:
			appMetrics.IncrementCircuitBreakerClose()
		}
	}
	advisorService := advisor.NewService(chatClient, chatCache, appMetrics, appLogger, advisorOpts)

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.TrustedProxies = cfg.TrustedProxies

	deps := Deps{
		ModelPath: cfg.ModelPath,
		Pipeline:  pipeline,
		Advisor:   advisorService,
		Limiter:   limiter,
		Redis:     redisClient,
		Metrics:   appMetrics,
		Logger:    appLogger,
		Security:  securityConfig,
		ChatLimit: ratelimit.Limit{
			Name:     "chat",
			Requests: cfg.Chat.RateLimit,
			Period:   cfg.Chat.RateWindow,
		},
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.HistoryEnabled {
		db, err := database.NewDB(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer errors.SafeClose(db, "history database")

		history := database.NewHistoryService(database.NewRepository(db), appMetrics, 256)
		// Closed before the database so queued writes land.
		defer errors.SafeClose(history, "history writer")

		go history.RunRetention(ctx, cfg.HistoryRetention, 24*time.Hour)

		deps.DB = db
		deps.History = history
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewServer(deps).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Port, "model_classes", len(pipeline.Classes()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	slog.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server exited")
	return nil
}
