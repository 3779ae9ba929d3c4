// Package reminders implements the smart reminder engine: per-invoice
// eligibility rules for overdue and pre-due payment reminders, urgency
// classification, AI-drafted suggestion assembly, and a payment-date
// predictor built on the client's payment history.
package reminders

import (
	"time"

	"github.com/billfold/billfold/internal/billing"
)

// ReminderType distinguishes overdue dunning notices from pre-due nudges.
type ReminderType string

const (
	TypePreDue  ReminderType = "pre_due"
	TypeOverdue ReminderType = "overdue"
)

// Urgency is the coarse severity tier driving the suggested action.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Action is the escalation step suggested for an eligible invoice.
type Action string

const (
	ActionSendReminder    Action = "send_reminder"
	ActionSendFinalNotice Action = "send_final_notice"
	ActionEscalate        Action = "escalate"
	ActionWait            Action = "wait"
)

// Confidence grades a payment prediction by the depth of history behind it.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Suggestion is the ephemeral output of an eligibility pass. It is never
// persisted; the caller dispatches the reminder and then calls the mark-sent
// operation.
type Suggestion struct {
	ID               string          `json:"id"`
	Invoice          billing.Invoice `json:"invoice"`
	Client           billing.Client  `json:"client"`
	DaysOverdue      int             `json:"days_overdue"`
	DaysUntilDue     *int            `json:"days_until_due,omitempty"`
	ReminderType     ReminderType    `json:"reminder_type"`
	Urgency          Urgency         `json:"urgency"`
	SuggestedAction  Action          `json:"suggested_action"`
	NextReminderDate time.Time       `json:"next_reminder_date"`

	// Drafted copy is optional enrichment; nil when the drafting gateway
	// failed or is not configured.
	AISubject *string `json:"ai_subject,omitempty"`
	AIMessage *string `json:"ai_message,omitempty"`
}

// Prediction estimates when an invoice is likely to be paid.
type Prediction struct {
	InvoiceID            int64      `json:"invoice_id"`
	PredictedPaymentDate time.Time  `json:"predicted_payment_date"`
	Confidence           Confidence `json:"confidence"`
	Reasoning            string     `json:"reasoning"`
}

// DashboardStats aggregates a workspace's overdue position.
type DashboardStats struct {
	TotalOverdueCount    int          `json:"total_overdue_count"`
	TotalOverdueAmount   float64      `json:"total_overdue_amount"`
	RemindersNeededCount int          `json:"reminders_needed_count"`
	CriticalCount        int          `json:"critical_count"`
	HighCount            int          `json:"high_count"`
	Reminders            []Suggestion `json:"reminders"`
}
