package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lumbung-erp/lumbung-erp/internal/app"
	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/observability"
	"github.com/lumbung-erp/lumbung-erp/internal/platform/db"
	"github.com/lumbung-erp/lumbung-erp/internal/preorder"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
	"github.com/lumbung-erp/lumbung-erp/internal/store"
	"github.com/lumbung-erp/lumbung-erp/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	documents := store.NewPostgres(pool)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	inventoryService := inventory.NewService(inventory.NewRepository(documents), auditLogger, nil)
	preorderService := preorder.NewService(preorder.NewRepository(documents), inventoryService, nil, auditLogger, nil)

	lowStockTask, err := jobs.NewLowStockScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	reminderTask, err := jobs.NewPreOrderReminderTask(time.Now().UTC(), cfg.PreOrderReminderAge)
	if err != nil {
		logger.Error("build reminder task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewTokenCleanupTask(time.Now().UTC(), cfg.TokenRetention)
	if err != nil {
		logger.Error("build token cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeLowStockScan, Handler: jobs.NewLowStockScanHandler(inventoryService, auditLogger, metrics, logger)},
			{Type: jobs.TaskTypePreOrderReminder, Handler: jobs.NewPreOrderReminderHandler(preorderService, logger)},
			{Type: jobs.TaskTypeTokenCleanup, Handler: jobs.NewTokenCleanupHandler(idempotencyStore, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockCron, Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.PreOrderReminderCron, Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.TokenCleanupCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
