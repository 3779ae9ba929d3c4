package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/billfold/billfold/internal/app"
	"github.com/billfold/billfold/internal/billing"
	"github.com/billfold/billfold/internal/drafting"
	jobmetrics "github.com/billfold/billfold/internal/jobs"
	"github.com/billfold/billfold/internal/platform/cache"
	"github.com/billfold/billfold/internal/platform/db"
	"github.com/billfold/billfold/internal/reminders"
	"github.com/billfold/billfold/internal/shared"
	"github.com/billfold/billfold/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	rdb, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = rdb.Close()
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("create queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Close()

	drafter := drafting.NewClient(cfg.DraftingURL, cfg.DraftingTimeout)
	repo := billing.NewRepository(pool)
	service := reminders.NewService(repo, drafter, logger)
	idempotency := shared.NewIdempotencyStore(pool)
	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)

	var sender jobs.Sender
	if cfg.SMTPAddr != "" {
		sender = &jobs.SMTPSender{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	} else {
		logger.Warn("SMTP_ADDR not set, emails will be logged instead of sent")
		sender = &jobs.LogSender{Logger: logger}
	}

	overdueScan := jobs.NewReminderScanJob(service, client, idempotency, rdb, logger, metrics)
	preDueScan := jobs.NewPreDueScanJob(service, client, idempotency, rdb, logger, metrics)

	overdueTask, err := jobs.NewReminderScanTask()
	if err != nil {
		logger.Error("build overdue scan task", slog.Any("error", err))
		os.Exit(1)
	}
	preDueTask, err := jobs.NewPreDueScanTask()
	if err != nil {
		logger.Error("build pre-due scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(sender, logger)},
			{Type: jobs.TaskReminderScan, Handler: overdueScan.Handle},
			{Type: jobs.TaskPreDueScan, Handler: preDueScan.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: jobs.NewIdempotencyCleanupHandler(idempotency, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueScanCron, Task: overdueTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
			{Spec: cfg.PreDueScanCron, Task: preDueTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
			{Spec: "0 3 * * 0", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("configure worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting",
		slog.String("overdue_cron", cfg.OverdueScanCron),
		slog.String("predue_cron", cfg.PreDueScanCron),
	)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
