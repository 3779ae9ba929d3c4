package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billfold/billfold/internal/shared"
)

// Repository provides PostgreSQL backed persistence for invoices, clients
// and payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, workspace_id, client_id, number, currency, total, amount_paid, due_date, status,
last_reminder_sent, reminder_count, next_reminder_date, last_pre_due_reminder_sent, pre_due_reminders_sent,
created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var lastReminder, nextReminder, lastPreDue pgtype.Timestamptz
	if err := row.Scan(
		&inv.ID, &inv.WorkspaceID, &inv.ClientID, &inv.Number, &inv.Currency,
		&inv.Total, &inv.AmountPaid, &inv.DueDate, &inv.Status,
		&lastReminder, &inv.ReminderCount, &nextReminder, &lastPreDue, &inv.PreDueRemindersSent,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastReminder.Valid {
		t := lastReminder.Time
		inv.LastReminderSent = &t
	}
	if nextReminder.Valid {
		t := nextReminder.Time
		inv.NextReminderDate = &t
	}
	if lastPreDue.Valid {
		t := lastPreDue.Time
		inv.LastPreDueReminderSent = &t
	}
	return &inv, nil
}

func (r *Repository) queryInvoices(ctx context.Context, query string, args ...any) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	return invoices, nil
}

// ListOverdueInvoices returns open invoices in the workspace whose due date
// has passed.
func (r *Repository) ListOverdueInvoices(ctx context.Context, workspaceID int64, asOf time.Time) ([]Invoice, error) {
	return r.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE workspace_id=$1 AND due_date < $2 AND status IN ('unpaid','partially_paid','overdue')
ORDER BY due_date`, workspaceID, asOf)
}

// ListUpcomingInvoices returns unpaid invoices due within [from, to).
func (r *Repository) ListUpcomingInvoices(ctx context.Context, workspaceID int64, from, to time.Time) ([]Invoice, error) {
	return r.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE workspace_id=$1 AND due_date >= $2 AND due_date < $3 AND status IN ('unpaid','partially_paid')
ORDER BY due_date`, workspaceID, from, to)
}

// GetInvoice looks up an invoice by id.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	return inv, nil
}

// GetClient looks up a client by id.
func (r *Repository) GetClient(ctx context.Context, id int64) (*Client, error) {
	var c Client
	var email pgtype.Text
	err := r.pool.QueryRow(ctx, `SELECT id, workspace_id, name, email FROM clients WHERE id=$1`, id).
		Scan(&c.ID, &c.WorkspaceID, &c.Name, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	if email.Valid {
		c.Email = email.String
	}
	return &c, nil
}

// ListPaidInvoices returns the client's invoices that reached paid status.
func (r *Repository) ListPaidInvoices(ctx context.Context, clientID int64) ([]Invoice, error) {
	return r.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE client_id=$1 AND status='paid' ORDER BY due_date DESC`, clientID)
}

// ListInvoicePayments returns payments for an invoice, newest first.
func (r *Repository) ListInvoicePayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, amount, method, paid_at FROM payments
WHERE invoice_id=$1 ORDER BY paid_at DESC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	return payments, nil
}

// UpdateOverdueReminderState records an overdue reminder dispatch. Only the
// engine-owned columns are touched; the count never decreases.
func (r *Repository) UpdateOverdueReminderState(ctx context.Context, id int64, count int, sentAt, next time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices
SET reminder_count=GREATEST(reminder_count, $2), last_reminder_sent=$3, next_reminder_date=$4, status='overdue', updated_at=$3
WHERE id=$1`, id, count, sentAt, next)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePreDueReminderState records a pre-due reminder dispatch. Overdue
// counters and invoice status are left untouched.
func (r *Repository) UpdatePreDueReminderState(ctx context.Context, id int64, count int, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices
SET pre_due_reminders_sent=GREATEST(pre_due_reminders_sent, $2), last_pre_due_reminder_sent=$3, updated_at=$3
WHERE id=$1`, id, count, sentAt)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListReminderWorkspaces returns workspaces that currently hold open invoices,
// used by the scan jobs to fan out.
func (r *Repository) ListReminderWorkspaces(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT workspace_id FROM invoices
WHERE status IN ('unpaid','partially_paid','overdue') ORDER BY workspace_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDataAccess, err)
	}
	return ids, nil
}
