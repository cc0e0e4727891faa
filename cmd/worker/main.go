package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kasirpos/kasirpos/internal/app"
	"github.com/kasirpos/kasirpos/internal/catalog"
	"github.com/kasirpos/kasirpos/internal/platform/db"
	"github.com/kasirpos/kasirpos/internal/reports"
	"github.com/kasirpos/kasirpos/internal/shared"
	"github.com/kasirpos/kasirpos/jobs"
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

	codes := shared.NewCodeGenerator(shared.SystemClock{})
	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, codes, logger)
	reportsRepo := reports.NewRepository(pool)

	lowStockTask, err := jobs.NewLowStockDigestTask(time.Now().UTC())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	summaryTask, err := jobs.NewDailySalesSummaryTask("")
	if err != nil {
		logger.Error("build daily summary task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockDigest, Handler: jobs.NewLowStockDigestHandler(catalogService, logger)},
			{Type: jobs.TaskDailySalesSummary, Handler: jobs.NewDailySalesSummaryHandler(reportsRepo, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockCron, Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.DailySummaryCron, Task: summaryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
