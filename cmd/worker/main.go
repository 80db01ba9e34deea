// Command worker consumes document processing tasks from asynq.
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

	"github.com/dharsanguruparan/loandrop/internal/config"
	"github.com/dharsanguruparan/loandrop/internal/database"
	"github.com/dharsanguruparan/loandrop/internal/localblob"
	"github.com/dharsanguruparan/loandrop/internal/repository"
	"github.com/dharsanguruparan/loandrop/internal/s3storage"
	"github.com/dharsanguruparan/loandrop/internal/signing"
	"github.com/dharsanguruparan/loandrop/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if cfg.Backend.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required: the worker shares metadata with docsvc")
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg.Backend.DatabaseURL)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Error("ensure schema", "error", err)
		os.Exit(1)
	}
	repo := repository.NewStore(pool)

	blobs, err := openDownloader(ctx, cfg, logger)
	if err != nil {
		logger.Error("init storage", "error", err)
		os.Exit(1)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, asynq.Config{
		Concurrency: cfg.Backend.ProcessingPool,
		Logger:      newAsynqLogger(logger),
	})
	processor := worker.NewProcessor(repo, blobs, logger)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("worker started", "concurrency", cfg.Backend.ProcessingPool)
	if err := server.Run(mux); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

// openDownloader mirrors docsvc's storage choice; a local store only works
// when both processes share the directory.
func openDownloader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (worker.Downloader, error) {
	if cfg.Storage.Backend == "local" {
		dir := cfg.Storage.LocalDir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "loandrop-blobs")
		}
		return localblob.New(dir, cfg.Backend.PublicURL, signing.NewSigner(cfg.Backend.SigningSecret), cfg.Portal.MaxFileSize, logger)
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

// asynqLogger adapts slog to asynq's printf-style Logger interface.
type asynqLogger struct {
	l *slog.Logger
}

func newAsynqLogger(l *slog.Logger) asynqLogger { return asynqLogger{l: l.With("component", "asynq")} }

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
