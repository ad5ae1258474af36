package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/ragguard/internal/app"
	"github.com/nikhilbhutani/ragguard/internal/config"
	"github.com/nikhilbhutani/ragguard/internal/queue"
	"github.com/nikhilbhutani/ragguard/internal/queue/workers"
)

const concurrency = 10

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Addr == "" {
		slog.Error("REDIS_ADDR is required for the worker")
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Warn("DATABASE_URL not set, worker will not see chunks written by the API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeIndexPush, asynq.HandlerFunc(workers.NewIndexWorker(a.Indexer, a.Store).ProcessTask))
	registry.Register(queue.TypeDataProcess, asynq.HandlerFunc(workers.NewProcessWorker(a.Documents).ProcessTask))

	srv := queue.NewServer(cfg.Redis, concurrency)
	if err := srv.Start(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
	slog.Info("starting worker", "concurrency", concurrency)

	<-ctx.Done()
	slog.Info("shutting down worker...")
	srv.Shutdown()
}
