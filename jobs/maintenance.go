package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/billfold/billfold/internal/jobs"
)

// Idempotency keys only guard same-day duplicates; a month of retention
// leaves plenty of margin for audits.
const idempotencyRetention = 30 * 24 * time.Hour

// Cleaner prunes aged idempotency keys; satisfied by *shared.IdempotencyStore.
type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewIdempotencyCleanupHandler builds the asynq handler for the weekly
// idempotency key pruning.
func NewIdempotencyCleanupHandler(store Cleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskIdempotencyCleanup)
		err := store.Cleanup(ctx, idempotencyRetention)
		if err != nil {
			logger.Error("idempotency cleanup failed", slog.Any("error", err))
		} else {
			logger.Info("idempotency cleanup completed")
		}
		return tracker.End(err)
	}
}
