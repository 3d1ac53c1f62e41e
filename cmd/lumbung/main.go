package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lumbung-erp/lumbung-erp/internal/app"
	"github.com/lumbung-erp/lumbung-erp/internal/dashboard"
	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/movement"
	"github.com/lumbung-erp/lumbung-erp/internal/observability"
	"github.com/lumbung-erp/lumbung-erp/internal/platform/cache"
	"github.com/lumbung-erp/lumbung-erp/internal/platform/db"
	"github.com/lumbung-erp/lumbung-erp/internal/preorder"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
	"github.com/lumbung-erp/lumbung-erp/internal/store"
	"github.com/lumbung-erp/lumbung-erp/jobs"
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
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	documents := store.NewPostgres(pool)
	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	inventoryService := inventory.NewService(inventory.NewRepository(documents), auditLogger, nil)
	movementService := movement.NewService(movement.NewRepository(documents), inventoryService, idempotencyStore, auditLogger, metrics)
	preorderService := preorder.NewService(preorder.NewRepository(documents), inventoryService, approvalRecorder, auditLogger, nil)
	dashboardService := dashboard.NewService(inventoryService, preorderService, movementService, redisClient, cfg.DashboardCacheTTL, logger)

	// mutations drop the dashboard cache so reads recompute
	inventoryService.SetCache(dashboardService)
	preorderService.SetCache(dashboardService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		MovementHandler:  movement.NewHandler(logger, movementService),
		PreOrderHandler:  preorder.NewHandler(logger, preorderService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
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
