// Command server runs the borrower portal API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/loandrop/internal/cache"
	"github.com/dharsanguruparan/loandrop/internal/config"
	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := facade.NewClient(cfg.Facade.DocumentServiceURL, cfg.Facade.ApplicationServiceURL, cfg.Facade.Timeout)
	checks := []server.Check{{Name: "document_service", Ping: client.Ping}}

	g, ctx := errgroup.WithContext(ctx)

	var queryCache *cache.Cache
	switch cfg.Cache.Backend {
	case "memory":
		queryCache = cache.New(cache.NewMemoryStore(), cache.NewMemoryBus(logger), logger)
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		bus := cache.NewRedisBus(rdb, cfg.Cache.Channel, logger)
		queryCache = cache.New(cache.NewRedisStore(rdb, "loandrop:cache:"), bus, logger)
		checks = append(checks, server.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		g.Go(func() error { return bus.Run(ctx) })
	}

	srv, err := server.New(cfg, server.Deps{
		Documents:    client,
		Applications: client,
		Cache:        queryCache,
		Checks:       checks,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("init server", "error", err)
		os.Exit(1)
	}
	g.Go(func() error { return srv.Serve(ctx) })

	if err := g.Wait(); err != nil {
		logger.Error("portal stopped", "error", err)
		os.Exit(1)
	}
}
