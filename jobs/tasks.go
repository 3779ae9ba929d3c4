package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeSendEmail is the task type for sending reminder emails.
	TaskTypeSendEmail = "mail:send"
	// TaskReminderScan is the task type for the overdue reminder scan.
	TaskReminderScan = "reminders:overdue_scan"
	// TaskPreDueScan is the task type for the pre-due reminder scan.
	TaskPreDueScan = "reminders:predue_scan"
	// TaskIdempotencyCleanup prunes aged idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, opts...), nil
}

// ReminderScanPayload scopes a scan run. An empty workspace list means every
// workspace with open invoices.
type ReminderScanPayload struct {
	WorkspaceIDs []int64 `json:"workspace_ids,omitempty"`
}

// NewReminderScanTask constructs the overdue scan task.
func NewReminderScanTask(workspaceIDs ...int64) (*asynq.Task, error) {
	data, err := json.Marshal(ReminderScanPayload{WorkspaceIDs: workspaceIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderScan, data), nil
}

// NewPreDueScanTask constructs the pre-due scan task.
func NewPreDueScanTask(workspaceIDs ...int64) (*asynq.Task, error) {
	data, err := json.Marshal(ReminderScanPayload{WorkspaceIDs: workspaceIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPreDueScan, data), nil
}

// NewIdempotencyCleanupTask constructs the idempotency key pruning task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
