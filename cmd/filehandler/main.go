// The filehandler service consumes file-path notifications from RabbitMQ,
// unpacks archives and relocates plain files beneath a fixed output root.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luckystars0612/SecGram/internal/archive"
	"github.com/luckystars0612/SecGram/internal/config"
	"github.com/luckystars0612/SecGram/internal/consumer"
	"github.com/luckystars0612/SecGram/internal/intake"
	"github.com/luckystars0612/SecGram/internal/observability"
	"github.com/luckystars0612/SecGram/internal/repository"
	"github.com/luckystars0612/SecGram/internal/taskqueue"
)

func main() {
	cfg := loadConfiguration()

	logger := observability.NewLogger(cfg.ServiceName, cfg.LogLevel, os.Stdout)
	metrics := observability.NewPrometheus(cfg.ServiceName)

	logger.Info("starting service",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
		"workers", cfg.Intake.Workers,
		"queue_capacity", cfg.Intake.QueueCapacity,
		"output_root", cfg.Intake.OutputRoot)

	store := openStore(cfg, logger, metrics)

	queue := taskqueue.New(cfg.Intake.QueueCapacity)

	extractor := archive.NewExtractor(logger, metrics)
	processor := intake.NewProcessor(extractor, store, cfg.Intake.OutputRoot, logger, metrics)
	pool := intake.NewPool(cfg.Intake.Workers, queue, processor, logger, metrics)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	pool.Start(workerCtx)

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg.Metrics.Addr, metrics, logger)
	}

	cons := consumer.New(&cfg.RabbitMQ, queue, logger, metrics)

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- cons.Run(context.Background())
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	var fatal error
	select {
	case fatal = <-consumerErr:
		// Transport failure: stop taking work, drain what we have, then
		// exit non-zero so the supervisor restarts the whole service.
	case sig := <-signals:
		logger.Info("shutdown signal received", "signal", sig.String())
		cons.Stop()
		<-consumerErr
	}

	// Graceful drain: no new admissions, queued jobs finish, workers exit.
	queue.Close()
	pool.Wait()
	stopWorkers()

	if store != nil {
		store.Close()
	}

	if fatal != nil {
		logger.Error("consumer terminated", "error", fatal)
		os.Exit(1)
	}
	logger.Info("service stopped")
}

// loadConfiguration loads and validates the application configuration
func loadConfiguration() *config.Config {
	cfgProvider := config.GetProvider()
	cfgProvider.MustLoad()
	return cfgProvider.MustGet()
}

// openStore connects the optional job-outcome store. A disabled database
// returns nil, which the processor treats as "don't persist".
func openStore(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) repository.Store {
	if !cfg.Database.Enabled {
		logger.Info("job-outcome persistence disabled")
		return nil
	}

	store, err := repository.NewPostgres(&cfg.Database, logger, metrics)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		log.Fatalf("failed to connect to database: %v", err)
	}
	return store
}

// startMetricsServer exposes the Prometheus registry over HTTP
func startMetricsServer(addr string, metrics *observability.PrometheusMetrics, logger observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
}
