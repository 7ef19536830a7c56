package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/config"
	"github.com/rowlog/rowlog/internal/handler"
	journalcassandra "github.com/rowlog/rowlog/internal/journal/cassandra"
	"github.com/rowlog/rowlog/internal/logger"
	"github.com/rowlog/rowlog/internal/service"
	snapshotcassandra "github.com/rowlog/rowlog/internal/snapshot/cassandra"
)

func main() {
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

	log.Info("Starting query API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

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

	// Initialize journal store and schema
	store := journalcassandra.NewStore(client, cfg.Journal.PartitionSize, log)
	if err := store.InitSchema(ctx, cfg.Cassandra.ReplicationFactor); err != nil {
		log.Fatal("Failed to initialize journal schema", zap.Error(err))
	}

	// Initialize snapshot schema alongside; the query API doesn't serve
	// snapshots but owns keyspace bootstrap for both stores.
	snapshotRepo := snapshotcassandra.NewRepository(client, log)
	if err := snapshotRepo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize snapshot schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Initialize query service
	queryService := service.NewQueryService(store, log)

	// Initialize handler
	h := handler.NewHandler(queryService, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	log.Info("API server starting", zap.String("address", addr))

	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal("Failed to start API server", zap.Error(err))
	}
}
