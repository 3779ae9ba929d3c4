package billing

import (
	"time"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "draft"
	StatusUnpaid        InvoiceStatus = "unpaid"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusPaid          InvoiceStatus = "paid"
	StatusOverdue       InvoiceStatus = "overdue"
	StatusCancelled     InvoiceStatus = "cancelled"
)

// Invoice model. The reminder-state fields (LastReminderSent, ReminderCount,
// NextReminderDate, LastPreDueReminderSent, PreDueRemindersSent) are owned by
// the reminder engine and mutated only through the repository's reminder-state
// updates; everything else is read-only input here.
type Invoice struct {
	ID          int64
	WorkspaceID int64
	ClientID    int64
	Number      string
	Currency    string
	Total       float64
	AmountPaid  float64
	DueDate     time.Time
	Status      InvoiceStatus

	LastReminderSent       *time.Time
	ReminderCount          int
	NextReminderDate       *time.Time
	LastPreDueReminderSent *time.Time
	PreDueRemindersSent    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Outstanding returns the unpaid remainder.
func (i Invoice) Outstanding() float64 {
	return i.Total - i.AmountPaid
}

// Client model. Email is empty when the client has no address on file;
// such clients are never reminder-eligible.
type Client struct {
	ID          int64
	WorkspaceID int64
	Name        string
	Email       string
}

// HasEmail reports whether the client can receive reminders.
func (c Client) HasEmail() bool {
	return c.Email != ""
}

// Payment model.
type Payment struct {
	ID        int64
	InvoiceID int64
	Amount    float64
	Method    string
	PaidAt    time.Time
}
