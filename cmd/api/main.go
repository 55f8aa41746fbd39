package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quorumdesk/agm-api/internal/config"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/server"
	"github.com/quorumdesk/agm-api/internal/storage/objectstore"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log := logger.Get()

	db, err := postgres.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := postgres.AutoMigrate(db); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The document store is optional infrastructure; the voting engine runs
	// without it.
	var documents *objectstore.DocumentStore
	if cfg.Documents.AccessKey != "" {
		documents, err = objectstore.NewDocumentStore(ctx, cfg)
		if err != nil {
			log.Warn("Document store unavailable, document routes disabled", "error", err)
			documents = nil
		}
	}

	srv := server.New(cfg, db, documents)
	srv.StartClocks(ctx)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("Server failed", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped")
}
