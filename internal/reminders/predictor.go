package reminders

import (
	"context"
	"fmt"
	"math"
)

// History thresholds for prediction confidence.
const (
	highConfidenceSamples   = 5
	mediumConfidenceSamples = 3

	// Without usable history, assume payment a week after the due date.
	defaultDaysToPayment = 7
)

// PredictPaymentDate estimates when an invoice will be paid from the client's
// paid-invoice history: for each previously paid invoice take its most recent
// payment, average the calendar-day deltas against the due dates, and project
// that average onto this invoice's due date. A plain historical mean; the
// rounding and the 3/5 sample thresholds are relied on by callers.
func (s *Service) PredictPaymentDate(ctx context.Context, invoiceID int64) (*Prediction, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	paid, err := s.repo.ListPaidInvoices(ctx, inv.ClientID)
	if err != nil {
		return nil, fmt.Errorf("list paid invoices: %w", err)
	}
	if len(paid) == 0 {
		return &Prediction{
			InvoiceID:            inv.ID,
			PredictedPaymentDate: inv.DueDate.AddDate(0, 0, defaultDaysToPayment),
			Confidence:           ConfidenceLow,
			Reasoning:            "No payment history available for this client; estimating one week after the due date.",
		}, nil
	}

	var sum, samples int
	for _, p := range paid {
		payments, err := s.repo.ListInvoicePayments(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list payments for invoice %d: %w", p.ID, err)
		}
		if len(payments) == 0 {
			continue
		}
		// Newest first; the latest payment closed the invoice.
		sum += daysBetween(p.DueDate, payments[0].PaidAt)
		samples++
	}

	if samples == 0 {
		// Paid invoices without payment rows: inconsistent data, treat
		// like an empty history.
		return &Prediction{
			InvoiceID:            inv.ID,
			PredictedPaymentDate: inv.DueDate.AddDate(0, 0, defaultDaysToPayment),
			Confidence:           ConfidenceLow,
			Reasoning:            "No complete payment records available; estimating one week after the due date.",
		}, nil
	}

	avg := int(math.Round(float64(sum) / float64(samples)))
	confidence := ConfidenceLow
	switch {
	case samples >= highConfidenceSamples:
		confidence = ConfidenceHigh
	case samples >= mediumConfidenceSamples:
		confidence = ConfidenceMedium
	}

	reasoning := fmt.Sprintf("Based on %d previous invoices, client typically pays %d days after due date.", samples, avg)
	if avg < 0 {
		reasoning = fmt.Sprintf("Based on %d previous invoices, client typically pays %d days before due date.", samples, -avg)
	}

	return &Prediction{
		InvoiceID:            inv.ID,
		PredictedPaymentDate: inv.DueDate.AddDate(0, 0, avg),
		Confidence:           confidence,
		Reasoning:            reasoning,
	}, nil
}
