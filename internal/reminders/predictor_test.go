package reminders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/billfold/billfold/internal/billing"
	"github.com/billfold/billfold/internal/shared"
)

// paidHistory seeds one paid invoice per delta, paid that many calendar days
// after its due date.
func paidHistory(repo *memRepo, clientID int64, deltas ...int) {
	base := day(2025, 6, 1)
	for i, delta := range deltas {
		id := int64(100 + i)
		due := base.AddDate(0, 0, i*30)
		repo.paidByClient[clientID] = append(repo.paidByClient[clientID], billing.Invoice{
			ID:       id,
			ClientID: clientID,
			DueDate:  due,
			Status:   billing.StatusPaid,
		})
		repo.paymentsByInvoice[id] = []billing.Payment{
			{ID: id*10 + 1, InvoiceID: id, Amount: 100, PaidAt: due.AddDate(0, 0, delta)},
		}
	}
}

func TestPredictPaymentDateNoHistory(t *testing.T) {
	repo := newMemRepo()
	due := day(2026, 4, 1)
	repo.addInvoice(billing.Invoice{ID: 1, ClientID: 10, DueDate: due})

	svc := newTestService(repo, nil, day(2026, 3, 20))
	got, err := svc.PredictPaymentDate(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, int64(1), got.InvoiceID)
	require.Equal(t, due.AddDate(0, 0, 7), got.PredictedPaymentDate)
	require.Equal(t, ConfidenceLow, got.Confidence)
	require.Equal(t, "No payment history available for this client; estimating one week after the due date.", got.Reasoning)
}

func TestPredictPaymentDateAveragesHistory(t *testing.T) {
	repo := newMemRepo()
	due := day(2026, 4, 1)
	repo.addInvoice(billing.Invoice{ID: 1, ClientID: 10, DueDate: due})
	paidHistory(repo, 10, 2, 4, 6, 8, 10)

	svc := newTestService(repo, nil, day(2026, 3, 20))
	got, err := svc.PredictPaymentDate(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, due.AddDate(0, 0, 6), got.PredictedPaymentDate)
	require.Equal(t, ConfidenceHigh, got.Confidence)
	require.Equal(t, "Based on 5 previous invoices, client typically pays 6 days after due date.", got.Reasoning)
}

func TestPredictPaymentDateMediumConfidence(t *testing.T) {
	repo := newMemRepo()
	due := day(2026, 4, 1)
	repo.addInvoice(billing.Invoice{ID: 1, ClientID: 10, DueDate: due})
	paidHistory(repo, 10, 3, 4, 5)

	svc := newTestService(repo, nil, day(2026, 3, 20))
	got, err := svc.PredictPaymentDate(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, due.AddDate(0, 0, 4), got.PredictedPaymentDate)
	require.Equal(t, ConfidenceMedium, got.Confidence)
}

func TestPredictPaymentDateRoundsAverage(t *testing.T) {
	repo := newMemRepo()
	due := day(2026, 4, 1)
	repo.addInvoice(billing.Invoice{ID: 1, ClientID: 10, DueDate: due})
	paidHistory(repo, 10, 3, 4) // mean 3.5 rounds to 4

	svc := newTestService(repo, nil, day(2026, 3, 20))
	got, err := svc.PredictPaymentDate(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, due.AddDate(0, 0, 4), got.PredictedPaymentDate)
	require.Equal(t, ConfidenceLow, got.Confidence)
}

func TestPredictPaymentDateEarlyPayer(t *testing.T) {
	repo := newMemRepo()
	due := day(2026, 4, 1)
	repo.addInvoice(billing.Invoice{ID: 1, ClientID: 10, DueDate: due})
	paidHistory(repo, 10, -3, -5, -4)

	svc := newTestService(repo, nil, day(2026, 3, 20))
	got, err := svc.PredictPaymentDate(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, due.AddDate(0, 0, -4), got.PredictedPaymentDate)
	require.Equal(t, "Based on 3 previous invoices, client typically pays 4 days before due date.", got.Reasoning)
}

func TestPredictPaymentDatePaidInvoicesWithoutPayments(t *testing.T) {
	repo := newMemRepo()
	due := day(2026, 4, 1)
	repo.addInvoice(billing.Invoice{ID: 1, ClientID: 10, DueDate: due})
	repo.paidByClient[10] = []billing.Invoice{
		{ID: 100, ClientID: 10, DueDate: day(2025, 6, 1), Status: billing.StatusPaid},
	}

	svc := newTestService(repo, nil, day(2026, 3, 20))
	got, err := svc.PredictPaymentDate(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, due.AddDate(0, 0, 7), got.PredictedPaymentDate)
	require.Equal(t, ConfidenceLow, got.Confidence)
	require.Equal(t, "No complete payment records available; estimating one week after the due date.", got.Reasoning)
}

func TestPredictPaymentDateMissingInvoice(t *testing.T) {
	svc := newTestService(newMemRepo(), nil, day(2026, 3, 20))
	got, err := svc.PredictPaymentDate(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Nil(t, got)
}

func TestPredictPaymentDateUsesLatestPayment(t *testing.T) {
	repo := newMemRepo()
	due := day(2026, 4, 1)
	repo.addInvoice(billing.Invoice{ID: 1, ClientID: 10, DueDate: due})

	histDue := day(2025, 6, 1)
	repo.paidByClient[10] = []billing.Invoice{
		{ID: 100, ClientID: 10, DueDate: histDue, Status: billing.StatusPaid},
	}
	// Newest first, matching the repository ordering.
	repo.paymentsByInvoice[100] = []billing.Payment{
		{ID: 1002, InvoiceID: 100, Amount: 50, PaidAt: histDue.AddDate(0, 0, 10)},
		{ID: 1001, InvoiceID: 100, Amount: 50, PaidAt: histDue.AddDate(0, 0, 2)},
	}

	svc := newTestService(repo, nil, day(2026, 3, 20))
	got, err := svc.PredictPaymentDate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, due.AddDate(0, 0, 10), got.PredictedPaymentDate)
}
