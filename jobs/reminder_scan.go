package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/billfold/billfold/internal/drafting"
	jobmetrics "github.com/billfold/billfold/internal/jobs"
	"github.com/billfold/billfold/internal/platform/cache"
	"github.com/billfold/billfold/internal/reminders"
	"github.com/billfold/billfold/internal/shared"
)

// ReminderService is the slice of the reminder engine the scan jobs use.
type ReminderService interface {
	OverdueReminders(ctx context.Context, workspaceID int64) ([]reminders.Suggestion, error)
	PreDueReminders(ctx context.Context, workspaceID int64) ([]reminders.Suggestion, error)
	MarkReminderSent(ctx context.Context, invoiceID int64) error
	MarkPreDueReminderSent(ctx context.Context, invoiceID int64) error
	ReminderWorkspaces(ctx context.Context) ([]int64, error)
}

// Enqueuer submits follow-up tasks; satisfied by *Client.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IdempotencyStore guards against duplicate sends across overlapping scan
// runs; satisfied by *shared.IdempotencyStore.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ReminderScanJob walks every workspace's overdue invoices, emails the
// eligible reminders and marks them sent. The scan is the "caller" side of
// the engine's two-phase protocol: suggestion first, mark-sent only after
// the email task is queued.
type ReminderScanJob struct {
	Service     ReminderService
	Mail        Enqueuer
	Idempotency IdempotencyStore
	// Redis backs the per-invoice lock; nil disables locking (single worker).
	Redis   *redis.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReminderScanJob initialises the overdue scan handler.
func NewReminderScanJob(service ReminderService, mail Enqueuer, idem IdempotencyStore, rdb *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReminderScanJob {
	return &ReminderScanJob{
		Service:     service,
		Mail:        mail,
		Idempotency: idem,
		Redis:       rdb,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the overdue reminder scan.
func (j *ReminderScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("reminder scan: handler not configured")
	}
	var payload ReminderScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReminderScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger(TaskReminderScan)
	start := j.now()
	logger.Info("starting overdue reminder scan")

	scanned, sent, err := j.run(ctx, payload, scanOverdue)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed overdue reminder scan",
		slog.Int("workspaces", scanned),
		slog.Int("reminders_sent", sent),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

type scanMode int

const (
	scanOverdue scanMode = iota
	scanPreDue
)

func (m scanMode) module() string {
	if m == scanPreDue {
		return "reminders.predue"
	}
	return "reminders"
}

func (j *ReminderScanJob) run(ctx context.Context, payload ReminderScanPayload, mode scanMode) (int, int, error) {
	workspaces := payload.WorkspaceIDs
	if len(workspaces) == 0 {
		var err error
		workspaces, err = j.Service.ReminderWorkspaces(ctx)
		if err != nil {
			return 0, 0, err
		}
	}

	sent := 0
	for _, workspaceID := range workspaces {
		var suggestions []reminders.Suggestion
		var err error
		if mode == scanPreDue {
			suggestions, err = j.Service.PreDueReminders(ctx, workspaceID)
		} else {
			suggestions, err = j.Service.OverdueReminders(ctx, workspaceID)
		}
		if err != nil {
			// One broken workspace must not sink the whole run.
			j.logger(taskName(mode)).Error("workspace scan failed",
				slog.Int64("workspace_id", workspaceID),
				slog.Any("error", err),
			)
			continue
		}
		for _, sg := range suggestions {
			if j.dispatch(ctx, sg, mode) {
				sent++
				j.metrics().AddReminders(string(sg.ReminderType), string(sg.Urgency), workspaceID, 1)
			}
		}
	}
	return len(workspaces), sent, nil
}

// dispatch queues one reminder email and marks the invoice. Returns false
// when the reminder was skipped or failed; failures never propagate.
func (j *ReminderScanJob) dispatch(ctx context.Context, sg reminders.Suggestion, mode scanMode) bool {
	logger := j.logger(taskName(mode)).With(
		slog.Int64("invoice_id", sg.Invoice.ID),
		slog.String("suggestion_id", sg.ID),
	)

	if j.Redis != nil {
		lock := cache.NewLock(j.Redis, shared.InvoiceReminderLockKey(sg.Invoice.ID), 30*time.Second)
		if err := lock.Acquire(ctx); err != nil {
			if errors.Is(err, cache.ErrLockHeld) {
				logger.Info("invoice locked by another worker, skipping")
			} else {
				logger.Error("invoice lock failed", slog.Any("error", err))
			}
			return false
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				logger.Warn("invoice lock release failed", slog.Any("error", err))
			}
		}()
	}

	key := fmt.Sprintf("%s:%d:%s", mode.module(), sg.Invoice.ID, j.now().Format("2006-01-02"))
	if j.Idempotency != nil {
		if err := j.Idempotency.CheckAndInsert(ctx, key, mode.module()); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				logger.Info("reminder already dispatched today, skipping")
			} else {
				logger.Error("idempotency check failed", slog.Any("error", err))
			}
			return false
		}
	}

	rollback := func() {
		if j.Idempotency != nil {
			if err := j.Idempotency.Delete(ctx, key); err != nil {
				logger.Warn("idempotency rollback failed", slog.Any("error", err))
			}
		}
	}

	dc := reminders.DraftContext(sg)
	subject := drafting.FallbackSubject(dc)
	if sg.AISubject != nil {
		subject = *sg.AISubject
	}
	body := drafting.FallbackMessage(dc)
	if sg.AIMessage != nil {
		body = *sg.AIMessage
	}

	_, err := j.Mail.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      sg.Client.Email,
		Subject: subject,
		Body:    body,
	}, asynq.TaskID("mail:"+key), asynq.MaxRetry(5))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logger.Info("reminder email already queued, skipping")
		} else {
			logger.Error("enqueue reminder email failed", slog.Any("error", err))
		}
		rollback()
		return false
	}

	if mode == scanPreDue {
		err = j.Service.MarkPreDueReminderSent(ctx, sg.Invoice.ID)
	} else {
		err = j.Service.MarkReminderSent(ctx, sg.Invoice.ID)
	}
	if err != nil {
		// The email is on its way; keep the idempotency key so a retry
		// does not send a second copy today.
		logger.Error("mark reminder sent failed", slog.Any("error", err))
		return false
	}

	logger.Info("reminder dispatched",
		slog.String("type", string(sg.ReminderType)),
		slog.String("urgency", string(sg.Urgency)),
		slog.String("action", string(sg.SuggestedAction)),
	)
	return true
}

func taskName(mode scanMode) string {
	if mode == scanPreDue {
		return TaskPreDueScan
	}
	return TaskReminderScan
}

func (j *ReminderScanJob) logger(task string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", task))
	}
	return slog.Default().With(slog.String("job", task))
}

func (j *ReminderScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *ReminderScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
