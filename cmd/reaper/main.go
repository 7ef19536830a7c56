package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/config"
	journalcassandra "github.com/rowlog/rowlog/internal/journal/cassandra"
	"github.com/rowlog/rowlog/internal/logger"
	"github.com/rowlog/rowlog/internal/reaper"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting reaper service",
		zap.String("environment", cfg.Service.Environment),
		zap.Int("interval_sec", cfg.Reaper.IntervalSec))

	ctx := context.Background()

	// Initialize Cassandra client
	client, err := journalcassandra.NewClient(ctx, &cfg.Cassandra, log)
	if err != nil {
		log.Fatal("Failed to create Cassandra client", zap.Error(err))
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Error("Failed to close Cassandra client", zap.Error(err))
		}
	}()

	// Initialize journal store
	store := journalcassandra.NewStore(client, cfg.Journal.PartitionSize, log)

	// Initialize reaper
	r := reaper.NewReaper(store, reaper.Config{
		Interval: time.Duration(cfg.Reaper.IntervalSec) * time.Second,
	}, log)

	// Start health check endpoint
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
			if err := store.Ping(req.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		addr := ":8081"
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	// Start reaper loop
	reaperCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go r.Start(reaperCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down reaper gracefully")
	cancel()
}
