package shared

import "fmt"

// InvoiceReminderLockKey builds redis keys guarding per-invoice reminder sends.
func InvoiceReminderLockKey(invoiceID int64) string {
	return fmt.Sprintf("reminders:invoice:%d:lock", invoiceID)
}
