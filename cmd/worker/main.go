package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fieldgate/fieldgate/internal/app"
	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/observability"
	"github.com/fieldgate/fieldgate/internal/platform/cache"
	"github.com/fieldgate/fieldgate/internal/platform/db"
	"github.com/fieldgate/fieldgate/internal/users"
	"github.com/fieldgate/fieldgate/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, degrading to per-process caching", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(pool)
	blobs := authz.NewPGConfigStore(pool)
	authzCache := authz.NewCache(redisClient)
	registry := authz.NewRegistry(blobs, authzCache, usersRepo, logger)

	scanJob := jobs.NewStaleRoleScanJob(usersRepo, registry, logger, metrics)
	scanTask, err := jobs.NewStaleRoleScanTask(jobs.StaleRoleScanPayload{Limit: 50})
	if err != nil {
		logger.Error("build stale role scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStaleRoleScan, Handler: scanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
