package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"room-advisor/internal/models"
	"room-advisor/internal/service"
	"room-advisor/pkg/config"
	"room-advisor/pkg/logger"

	"go.uber.org/zap"
)

type result struct {
	Name string `json:"name"`
	SKU  string `json:"sku,omitempty"`
	models.Resolution
}

func main() {
	timeout := flag.Duration("timeout", 0, "per-request timeout (default from config)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: resolve [-timeout 8s] \"<product name>\" ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *timeout > 0 {
		cfg.Catalog.RequestTimeout = *timeout
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := service.NewCatalogClient(&cfg.Catalog, appLogger)
	resolver := service.NewResolverService(&cfg.Catalog, client, nil, appLogger)

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)

	start := time.Now()
	for _, name := range flag.Args() {
		res := resolver.Resolve(ctx, name)
		if err := enc.Encode(result{Name: name, SKU: service.ExtractSKU(name), Resolution: res}); err != nil {
			log.Fatalf("Failed to write result: %v", err)
		}
	}
	appLogger.Debug("Resolution finished", zap.Int("products", flag.NArg()), zap.Duration("elapsed", time.Since(start)))
}
