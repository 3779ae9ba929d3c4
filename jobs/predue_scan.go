package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/billfold/billfold/internal/jobs"
)

// PreDueScanJob nudges clients whose invoices come due within the next week.
// It shares the dispatch pipeline with the overdue scan but touches only the
// pre-due counters.
type PreDueScanJob struct {
	inner *ReminderScanJob
}

// NewPreDueScanJob initialises the pre-due scan handler.
func NewPreDueScanJob(service ReminderService, mail Enqueuer, idem IdempotencyStore, rdb *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *PreDueScanJob {
	return &PreDueScanJob{inner: NewReminderScanJob(service, mail, idem, rdb, logger, metrics)}
}

// Handle executes the pre-due reminder scan.
func (j *PreDueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.inner == nil {
		return errors.New("pre-due scan: handler not configured")
	}
	var payload ReminderScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.inner.metrics().Track(TaskPreDueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.inner.logger(TaskPreDueScan)
	start := j.inner.now()
	logger.Info("starting pre-due reminder scan")

	scanned, sent, err := j.inner.run(ctx, payload, scanPreDue)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed pre-due reminder scan",
		slog.Int("workspaces", scanned),
		slog.Int("reminders_sent", sent),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}
