package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/billfold/billfold/internal/billing"
	"github.com/billfold/billfold/internal/drafting"
	"github.com/billfold/billfold/internal/shared"
)

// RepositoryPort defines the data access the reminder engine needs.
type RepositoryPort interface {
	ListOverdueInvoices(ctx context.Context, workspaceID int64, asOf time.Time) ([]billing.Invoice, error)
	ListUpcomingInvoices(ctx context.Context, workspaceID int64, from, to time.Time) ([]billing.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*billing.Invoice, error)
	GetClient(ctx context.Context, id int64) (*billing.Client, error)
	ListPaidInvoices(ctx context.Context, clientID int64) ([]billing.Invoice, error)
	ListInvoicePayments(ctx context.Context, invoiceID int64) ([]billing.Payment, error)
	UpdateOverdueReminderState(ctx context.Context, id int64, count int, sentAt, next time.Time) error
	UpdatePreDueReminderState(ctx context.Context, id int64, count int, sentAt time.Time) error
	ListReminderWorkspaces(ctx context.Context) ([]int64, error)
}

const defaultDraftConcurrency = 4

// Service is the reminder engine. It is invoked per request or per scheduled
// scan; it keeps no state of its own and never dispatches reminders itself.
// Mark-sent is a separate call the caller makes after dispatch (two-phase,
// at-least-once: concurrent schedulers need the idempotency store or the
// invoice lock to avoid double sends).
type Service struct {
	repo             RepositoryPort
	drafter          drafting.Drafter
	logger           *slog.Logger
	clock            func() time.Time
	draftConcurrency int
}

// NewService builds a Service instance. drafter may be nil to disable
// AI enrichment.
func NewService(repo RepositoryPort, drafter drafting.Drafter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:             repo,
		drafter:          drafter,
		logger:           logger,
		clock:            func() time.Time { return time.Now().UTC() },
		draftConcurrency: defaultDraftConcurrency,
	}
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}

// OverdueReminders returns a suggestion for every overdue invoice in the
// workspace that is reminder-eligible right now. Per-invoice failures are
// logged and skipped; one bad invoice never aborts the batch. No state is
// mutated.
func (s *Service) OverdueReminders(ctx context.Context, workspaceID int64) ([]Suggestion, error) {
	now := s.now()
	invoices, err := s.repo.ListOverdueInvoices(ctx, workspaceID, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue invoices: %w", err)
	}

	suggestions := make([]Suggestion, 0, len(invoices))
	for _, inv := range invoices {
		daysOverdue := DaysOverdue(inv.DueDate, now)
		if daysOverdue <= 0 {
			// Due today or a data anomaly; this invoice belongs to the
			// pre-due path.
			s.logger.Warn("overdue scan skipping invoice not a full day past due",
				slog.Int64("invoice_id", inv.ID),
				slog.Time("due_date", inv.DueDate),
			)
			continue
		}
		if !ShouldSendReminder(inv, now) {
			continue
		}
		client, err := s.lookupClient(ctx, inv)
		if err != nil || client == nil {
			continue
		}

		cls := ClassifyOverdue(daysOverdue, inv.ReminderCount)
		suggestions = append(suggestions, Suggestion{
			ID:               uuid.NewString(),
			Invoice:          inv,
			Client:           *client,
			DaysOverdue:      daysOverdue,
			ReminderType:     TypeOverdue,
			Urgency:          cls.Urgency,
			SuggestedAction:  cls.Action,
			NextReminderDate: now.AddDate(0, 0, cls.NextInDays),
		})
	}

	s.enrich(ctx, suggestions)
	return suggestions, nil
}

// PreDueReminders returns nudge suggestions for invoices due within the next
// seven days. Pre-due suggestions are always low urgency.
func (s *Service) PreDueReminders(ctx context.Context, workspaceID int64) ([]Suggestion, error) {
	now := s.now()
	from := startOfDay(now)
	to := from.AddDate(0, 0, 8) // [today, today+7] inclusive
	invoices, err := s.repo.ListUpcomingInvoices(ctx, workspaceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list upcoming invoices: %w", err)
	}

	suggestions := make([]Suggestion, 0, len(invoices))
	for _, inv := range invoices {
		if !ShouldSendPreDueReminder(inv, now) {
			continue
		}
		client, err := s.lookupClient(ctx, inv)
		if err != nil || client == nil {
			continue
		}

		until := DaysUntilDue(inv.DueDate, now)
		suggestions = append(suggestions, Suggestion{
			ID:               uuid.NewString(),
			Invoice:          inv,
			Client:           *client,
			DaysOverdue:      0,
			DaysUntilDue:     &until,
			ReminderType:     TypePreDue,
			Urgency:          UrgencyLow,
			SuggestedAction:  ActionSendReminder,
			NextReminderDate: inv.DueDate,
		})
	}

	s.enrich(ctx, suggestions)
	return suggestions, nil
}

// lookupClient resolves the invoice's client, returning nil for invoices
// that can never be reminded (no client record, no email on file).
func (s *Service) lookupClient(ctx context.Context, inv billing.Invoice) (*billing.Client, error) {
	client, err := s.repo.GetClient(ctx, inv.ClientID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("invoice references missing client",
				slog.Int64("invoice_id", inv.ID),
				slog.Int64("client_id", inv.ClientID),
			)
			return nil, nil
		}
		s.logger.Error("client lookup failed, skipping invoice",
			slog.Int64("invoice_id", inv.ID),
			slog.Any("error", err),
		)
		return nil, err
	}
	if client == nil || !client.HasEmail() {
		return nil, nil
	}
	return client, nil
}

// MarkReminderSent records that an overdue reminder was actually dispatched:
// it bumps the reminder count, stamps the send time, schedules the next
// cadence slot (7 days for the first two reminders, 14 after) and forces the
// invoice status to overdue.
func (s *Service) MarkReminderSent(ctx context.Context, invoiceID int64) error {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	now := s.now()
	count := inv.ReminderCount + 1
	nextInDays := repeatReminderAfterDays
	if count > 2 {
		nextInDays = lateReminderAfterDays
	}
	return s.repo.UpdateOverdueReminderState(ctx, invoiceID, count, now, now.AddDate(0, 0, nextInDays))
}

// MarkPreDueReminderSent records a dispatched pre-due nudge. Overdue counters
// and invoice status are not touched.
func (s *Service) MarkPreDueReminderSent(ctx context.Context, invoiceID int64) error {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	return s.repo.UpdatePreDueReminderState(ctx, invoiceID, inv.PreDueRemindersSent+1, s.now())
}

// DashboardStats aggregates the workspace's overdue position for display.
func (s *Service) DashboardStats(ctx context.Context, workspaceID int64) (*DashboardStats, error) {
	now := s.now()
	invoices, err := s.repo.ListOverdueInvoices(ctx, workspaceID, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue invoices: %w", err)
	}
	suggestions, err := s.OverdueReminders(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalOverdueCount: len(invoices),
		Reminders:         suggestions,
	}
	for _, inv := range invoices {
		stats.TotalOverdueAmount += inv.Outstanding()
	}
	stats.RemindersNeededCount = len(suggestions)
	for _, sg := range suggestions {
		switch sg.Urgency {
		case UrgencyCritical:
			stats.CriticalCount++
		case UrgencyHigh:
			stats.HighCount++
		}
	}
	return stats, nil
}

// ReminderWorkspaces lists workspaces holding open invoices, for scan fan-out.
func (s *Service) ReminderWorkspaces(ctx context.Context) ([]int64, error) {
	return s.repo.ListReminderWorkspaces(ctx)
}

// DraftContext builds the drafting gateway input for a suggestion.
func DraftContext(sg Suggestion) drafting.Context {
	days := sg.DaysOverdue
	if sg.ReminderType == TypePreDue && sg.DaysUntilDue != nil {
		days = *sg.DaysUntilDue
	}
	return drafting.Context{
		DocumentType:   "invoice",
		Number:         sg.Invoice.Number,
		ClientName:     sg.Client.Name,
		AmountDue:      drafting.FormatAmount(sg.Invoice.Currency, sg.Invoice.Outstanding()),
		DueDate:        sg.Invoice.DueDate.Format("2006-01-02"),
		Overdue:        sg.ReminderType == TypeOverdue,
		Days:           days,
		PriorReminders: sg.Invoice.ReminderCount,
	}
}

// enrich asks the drafting gateway for subject and body copy, bounded fan-out
// across suggestions, the two calls per suggestion issued concurrently.
// Drafting failures are logged and leave the fields nil; they never fail the
// suggestion.
func (s *Service) enrich(ctx context.Context, suggestions []Suggestion) {
	if s.drafter == nil || len(suggestions) == 0 {
		return
	}
	g := new(errgroup.Group)
	g.SetLimit(s.draftConcurrency)
	for i := range suggestions {
		sg := &suggestions[i]
		g.Go(func() error {
			dc := DraftContext(*sg)

			var wg sync.WaitGroup
			var subject, body string
			var subjectErr, bodyErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				subject, subjectErr = s.drafter.SubjectLine(ctx, dc)
			}()
			go func() {
				defer wg.Done()
				body, bodyErr = s.drafter.EmailMessage(ctx, dc)
			}()
			wg.Wait()

			if subjectErr != nil {
				s.logger.Warn("draft subject failed",
					slog.Int64("invoice_id", sg.Invoice.ID),
					slog.Any("error", subjectErr),
				)
			} else {
				sg.AISubject = &subject
			}
			if bodyErr != nil {
				s.logger.Warn("draft message failed",
					slog.Int64("invoice_id", sg.Invoice.ID),
					slog.Any("error", bodyErr),
				)
			} else {
				sg.AIMessage = &body
			}
			return nil
		})
	}
	_ = g.Wait()
}
