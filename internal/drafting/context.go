// Package drafting talks to the external AI drafting gateway that writes
// reminder subject lines and email bodies. Drafting output is optional
// enrichment everywhere: callers must tolerate failures.
package drafting

import (
	"context"
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Context carries the facts the drafting gateway needs to write a reminder.
type Context struct {
	DocumentType   string `json:"document_type"`
	Number         string `json:"number"`
	ClientName     string `json:"client_name"`
	AmountDue      string `json:"amount_due"`
	DueDate        string `json:"due_date"`
	Overdue        bool   `json:"overdue"`
	Days           int    `json:"days"`
	PriorReminders int    `json:"prior_reminders"`
}

// Drafter produces a subject line and an email body for a reminder context.
// Both calls may fail independently.
type Drafter interface {
	SubjectLine(ctx context.Context, dc Context) (string, error)
	EmailMessage(ctx context.Context, dc Context) (string, error)
}

// FormatAmount renders a money amount with its currency for display in
// reminder copy, e.g. "USD 1,250.00".
func FormatAmount(code string, amount float64) string {
	p := message.NewPrinter(language.English)
	if unit, err := currency.ParseISO(code); err == nil {
		return p.Sprintf("%v %.2f", unit, amount)
	}
	return p.Sprintf("%s %.2f", code, amount)
}

// FallbackSubject builds a plain subject line used when drafting is down.
func FallbackSubject(dc Context) string {
	if dc.Overdue {
		return fmt.Sprintf("Payment reminder: %s %s is %d days overdue", dc.DocumentType, dc.Number, dc.Days)
	}
	if dc.Days == 0 {
		return fmt.Sprintf("Payment reminder: %s %s is due today", dc.DocumentType, dc.Number)
	}
	return fmt.Sprintf("Payment reminder: %s %s is due in %d days", dc.DocumentType, dc.Number, dc.Days)
}

// FallbackMessage builds a plain email body used when drafting is down.
func FallbackMessage(dc Context) string {
	if dc.Overdue {
		return fmt.Sprintf(
			"Dear %s,\n\nThis is a reminder that %s %s for %s was due on %s and is now %d days overdue. Please arrange payment at your earliest convenience.\n\nThank you.",
			dc.ClientName, dc.DocumentType, dc.Number, dc.AmountDue, dc.DueDate, dc.Days)
	}
	return fmt.Sprintf(
		"Dear %s,\n\nThis is a friendly reminder that %s %s for %s is due on %s. Please arrange payment before the due date.\n\nThank you.",
		dc.ClientName, dc.DocumentType, dc.Number, dc.AmountDue, dc.DueDate)
}
