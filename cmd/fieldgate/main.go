package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldgate/fieldgate/internal/app"
	"github.com/fieldgate/fieldgate/internal/auth"
	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/observability"
	"github.com/fieldgate/fieldgate/internal/platform/cache"
	"github.com/fieldgate/fieldgate/internal/platform/db"
	"github.com/fieldgate/fieldgate/internal/properties"
	"github.com/fieldgate/fieldgate/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	usersRepo := users.NewRepository(dbpool)

	blobs := authz.NewPGConfigStore(dbpool)
	authzCache := authz.NewCache(redisClient)
	registry := authz.NewRegistry(blobs, authzCache, usersRepo, logger)
	permStore := authz.NewPermissionStore(blobs, authzCache, registry, logger)
	evaluator := authz.NewEvaluator(permStore, logger, metrics)
	authzMW := authz.Middleware{Evaluator: evaluator}
	authzHandler := authz.NewHandler(logger, registry, permStore, authzMW)

	tokens, err := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		logger.Error("init token manager", slog.Any("error", err))
		os.Exit(1)
	}
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens, registry, redisClient)
	authHandler := auth.NewHandler(logger, authService)

	usersService := users.NewService(usersRepo, registry)
	usersHandler := users.NewHandler(logger, usersService, authzMW)

	propertiesRepo := properties.NewRepository(dbpool)
	propertiesService := properties.NewService(propertiesRepo)
	propertiesHandler := properties.NewHandler(logger, propertiesService, authzMW)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		AuthzHandler:      authzHandler,
		UsersHandler:      usersHandler,
		PropertiesHandler: propertiesHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}
