// Package main is the entry point for the explorer views worker.
// The worker polls the queue and materializes the views of explorers with a pending
// refresh job.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/owid/owid-grapher-sub039/internal/config"
	"github.com/owid/owid-grapher-sub039/internal/logger"
	"github.com/owid/owid-grapher-sub039/internal/observability"
	"github.com/owid/owid-grapher-sub039/internal/store/driver"
	"github.com/owid/owid-grapher-sub039/internal/worker"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default: explorers.yaml in current directory)")
	metricsAddr := flag.String("metrics-addr", ":6162", "Address of the metrics server")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := driver.Open(ctx, cfg, false, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "explorer-views-worker", cfg.OTELEndpoint)
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

	materializer, err := worker.NewMaterializer(s, log)
	if err != nil {
		log.Error("failed to create materializer", "error", err)
		os.Exit(1)
	}

	agent := worker.New(materializer, worker.AgentConfig{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPollInterval,
		MaxBackoff:   cfg.WorkerMaxBackoff,
		JobTimeout:   cfg.WorkerJobTimeout,
	}, log)

	log.Info("worker started", "concurrency", cfg.WorkerConcurrency, "store", cfg.StoreDriver)
	go agent.Run(ctx)

	// Start a dedicated metrics server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		log.Info("worker metrics listening", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	cancel()

	<-agent.Done()
}
