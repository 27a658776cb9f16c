package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"room-advisor/internal/api"
	"room-advisor/internal/api/handlers"
	"room-advisor/internal/repository"
	"room-advisor/internal/service"
	"room-advisor/pkg/config"
	"room-advisor/pkg/logger"
	"room-advisor/pkg/redisdb"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title Room Advisor API
// @version 1.0
// @description Guided selling demo: room-based product recommendations, quote requests and PDF summaries

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:7860
// @BasePath /api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting room advisor service")

	ctx := context.Background()

	var rdb *redis.Client
	if cfg.Session.Backend == "redis" || cfg.Cache.Backend == "redis" {
		rdb, err = redisdb.NewClient(ctx, &cfg.Redis, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	// Initialize repositories
	var sessions repository.SessionRepository = repository.NewMemorySessionRepository(cfg.Session.TTL)
	if cfg.Session.Backend == "redis" {
		sessions = repository.NewRedisSessionRepository(rdb, cfg.Session.TTL)
	}

	var resolutionCache repository.ResolutionCache
	switch cfg.Cache.Backend {
	case "memory":
		resolutionCache = repository.NewMemoryResolutionCache(cfg.Cache.TTL)
	case "redis":
		resolutionCache = repository.NewRedisResolutionCache(rdb, cfg.Cache.TTL)
	}

	leadRepo := repository.NewLeadRepository(cfg.Ledger.Path, logger.Component("ledger"))

	// Initialize services. A missing API key is reported once; the UI,
	// lead and export endpoints keep working.
	var completer service.ChatCompleter
	if err := cfg.CheckCredentials(); err != nil {
		appLogger.Warn("Recommendations unavailable", zap.Error(err), zap.String("provider", cfg.LLM.Provider))
	} else {
		c, err := service.NewChatCompleter(ctx, &cfg.LLM, logger.Component("llm"))
		if err != nil {
			appLogger.Warn("Recommendations unavailable", zap.Error(err), zap.String("provider", cfg.LLM.Provider))
		} else {
			completer = c
			if closer, ok := c.(io.Closer); ok {
				defer closer.Close()
			}
		}
	}

	recService := service.NewRecommendationService(completer, cfg.Export.Brand, cfg.LLM.Timeout, logger.Component("recommender"))

	catalogClient := service.NewCatalogClient(&cfg.Catalog, logger.Component("catalog"))
	resolver := service.NewResolverService(&cfg.Catalog, catalogClient, resolutionCache, logger.Component("resolver"))

	leadService := service.NewLeadService(leadRepo, logger.Component("leads"))
	exportService := service.NewExportService(&cfg.Export, resolver, logger.Component("export"))

	advisor := service.NewAdvisorService(recService, resolver, leadService, exportService, sessions, appLogger)

	// Initialize handlers
	advisorHandler := handlers.NewAdvisorHandler(advisor, leadService, appLogger)

	// Setup router
	app := api.SetupRouter(advisorHandler, api.RouterConfig{
		StaticDir:    cfg.Server.StaticDir,
		SessionTTL:   cfg.Session.TTL,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting",
			zap.String("address", addr),
			zap.String("ledger", leadRepo.Path()),
		)
		if err := app.Listen(addr); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
