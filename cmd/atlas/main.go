package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/atlas-ops/atlas-ops/internal/app"
	"github.com/atlas-ops/atlas-ops/internal/cuts"
	"github.com/atlas-ops/atlas-ops/internal/ledger"
	"github.com/atlas-ops/atlas-ops/internal/notify"
	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/platform/cache"
	"github.com/atlas-ops/atlas-ops/internal/platform/db"
	"github.com/atlas-ops/atlas-ops/internal/shared"
	"github.com/atlas-ops/atlas-ops/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	dispatcher := notify.NewDispatcher(jobClient, logger)

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(ordersRepo)
	ordersHandler := orders.NewHandler(logger, ordersService)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, ordersRepo, idempotencyStore)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	cutsRepo := cuts.NewRepository(pool, cfg.LockTimeout)
	cutsCache := cuts.NewListCache(redisClient, cfg.CutsCacheTTL)
	cutsService := cuts.NewService(cutsRepo, dispatcher, auditLogger, idempotencyStore, cutsCache, logger, cuts.ServiceConfig{
		BaseURL: cfg.NotifyBaseURL,
	})
	cutsHandler := cuts.NewHandler(logger, cutsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.MiddlewareConfig{Logger: logger, Config: cfg})
	router.Route("/api/v1", func(r chi.Router) {
		ordersHandler.MountRoutes(r)
		ledgerHandler.MountRoutes(r)
		cutsHandler.MountRoutes(r)
		r.Route("/jobs", jobHandler.MountRoutes)
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
