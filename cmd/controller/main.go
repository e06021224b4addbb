// Package main is the entry point for the explorer views controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/owid/owid-grapher-sub039/internal/config"
	"github.com/owid/owid-grapher-sub039/internal/controller"
	"github.com/owid/owid-grapher-sub039/internal/controller/handlers"
	"github.com/owid/owid-grapher-sub039/internal/datasource"
	"github.com/owid/owid-grapher-sub039/internal/logger"
	"github.com/owid/owid-grapher-sub039/internal/observability"
	"github.com/owid/owid-grapher-sub039/internal/publish"
	"github.com/owid/owid-grapher-sub039/internal/store/driver"
	"github.com/owid/owid-grapher-sub039/internal/worker"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: explorers.yaml in current directory)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	s, err := driver.Open(ctx, cfg, *migrateFlag, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "explorer-views-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("failed to shutdown metrics", "error", err)
		}
	}()
	if err := observability.RegisterQueueDepth("explorer-views-controller", s, log); err != nil {
		log.Warn("failed to register queue depth metric", "error", err)
	}

	materializer, err := worker.NewMaterializer(s, log)
	if err != nil {
		log.Error("failed to create materializer", "error", err)
		os.Exit(1)
	}
	h := handlers.New(s, publish.New(s, log), materializer, log)

	if cfg.DatasourceBucketURL != "" {
		catalog, err := datasource.OpenBlobCatalog(ctx, cfg.DatasourceBucketURL)
		if err != nil {
			log.Error("failed to open data source bucket", "error", err)
			os.Exit(1)
		}
		defer catalog.Close()
		h.WithCatalog(catalog)
	}

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, h, controller.Options{
		AdminTokenHash:   cfg.AdminTokenHash,
		InternalToken:    cfg.InternalToken,
		PublishRateLimit: cfg.PublishRateLimit,
		PublishRateBurst: cfg.PublishRateBurst,
		Metrics:          metricsHandler,
	}, log)

	go func() {
		log.Info("controller starting", "addr", addr, "store", cfg.StoreDriver)
		if err := srv.Run(ctx); err != nil {
			log.Error("server stopped", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down controller")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}
	log.Info("server exited properly")
}
