// Command docsvc runs the reference document and application service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/loandrop/internal/api"
	"github.com/dharsanguruparan/loandrop/internal/config"
	"github.com/dharsanguruparan/loandrop/internal/database"
	"github.com/dharsanguruparan/loandrop/internal/localblob"
	"github.com/dharsanguruparan/loandrop/internal/processing"
	"github.com/dharsanguruparan/loandrop/internal/queue"
	"github.com/dharsanguruparan/loandrop/internal/repository"
	"github.com/dharsanguruparan/loandrop/internal/s3storage"
	"github.com/dharsanguruparan/loandrop/internal/signing"
	"github.com/dharsanguruparan/loandrop/internal/storage"
	"github.com/dharsanguruparan/loandrop/internal/worker"
)

// objectStore is what both the API and the in-process worker need.
type objectStore interface {
	api.ObjectStore
	worker.Downloader
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("document service stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var store storage.Store
	if cfg.Backend.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.Backend.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		store = repository.NewStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, metadata kept in memory")
		store = storage.NewMemoryStore()
	}

	blobs, err := openObjectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var dispatcher api.Dispatcher
	switch cfg.Backend.Dispatch {
	case "local":
		pool := processing.New(worker.NewProcessor(store, blobs, logger).Process, cfg.Backend.ProcessingPool, logger)
		pool.Start(ctx)
		dispatcher = pool
	default:
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		dispatcher = queue.NewDispatcher(client)
	}

	return api.New(cfg.Backend, store, blobs, dispatcher, logger).Run(ctx)
}

func openObjectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (objectStore, error) {
	if cfg.Storage.Backend == "local" {
		dir := cfg.Storage.LocalDir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "loandrop-blobs")
		}
		signer := signing.NewSigner(cfg.Backend.SigningSecret)
		return localblob.New(dir, cfg.Backend.PublicURL, signer, cfg.Portal.MaxFileSize, logger)
	}
	s3, err := s3storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return s3, nil
}
