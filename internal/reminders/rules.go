package reminders

import (
	"time"

	"github.com/billfold/billfold/internal/billing"
)

// Reminder cadence and escalation thresholds, in days.
const (
	firstReminderAfterDays  = 3
	repeatReminderAfterDays = 7
	lateReminderAfterDays   = 14

	mediumDaysOverdue   = 14
	highDaysOverdue     = 30
	criticalDaysOverdue = 60
)

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from one instant to another. Hours within
// a day never count: 23:59 to 00:01 the next day is one day.
func daysBetween(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)) / (24 * time.Hour))
}

// DaysOverdue returns calendar days past due; zero or negative means not
// a full day overdue yet.
func DaysOverdue(dueDate, now time.Time) int {
	return daysBetween(dueDate, now)
}

// DaysUntilDue returns calendar days until the due date; zero means due today.
func DaysUntilDue(dueDate, now time.Time) int {
	return daysBetween(now, dueDate)
}

// ShouldSendReminder decides whether an overdue invoice is eligible for a
// reminder right now. The check is read-only; callers mark the send
// separately after dispatch.
//
// Cadence by prior reminder count: first reminder once three days overdue,
// then every seven days for the second and third, every fourteen after that.
func ShouldSendReminder(inv billing.Invoice, now time.Time) bool {
	// Same-calendar-day guard against duplicate sends.
	if inv.LastReminderSent != nil && daysBetween(*inv.LastReminderSent, now) < 1 {
		return false
	}
	// An explicit cool-down overrides the cadence.
	if inv.NextReminderDate != nil && inv.NextReminderDate.After(now) {
		return false
	}
	switch {
	case inv.ReminderCount == 0:
		return DaysOverdue(inv.DueDate, now) >= firstReminderAfterDays
	case inv.ReminderCount <= 2:
		return inv.LastReminderSent != nil && daysBetween(*inv.LastReminderSent, now) >= repeatReminderAfterDays
	case inv.ReminderCount >= 3:
		return inv.LastReminderSent != nil && daysBetween(*inv.LastReminderSent, now) >= lateReminderAfterDays
	}
	return false
}

// ShouldSendPreDueReminder decides whether an upcoming invoice is eligible
// for a pre-due nudge. Pre-due counters are independent of the overdue path.
//
// Two windows exist: roughly a week out (first nudge only) and the due date
// itself. The due-date window accepts invoices that missed the week-out nudge,
// so the schedule self-heals. Days one through five before due never remind.
func ShouldSendPreDueReminder(inv billing.Invoice, now time.Time) bool {
	if inv.LastPreDueReminderSent != nil && now.Sub(*inv.LastPreDueReminderSent) < 24*time.Hour {
		return false
	}
	switch until := DaysUntilDue(inv.DueDate, now); {
	case until >= 6 && until <= 7:
		return inv.PreDueRemindersSent == 0
	case until == 0:
		return inv.PreDueRemindersSent < 2
	default:
		return false
	}
}

// Classification pairs the urgency tier with the suggested action and the
// next cadence interval.
type Classification struct {
	Urgency    Urgency
	Action     Action
	NextInDays int
}

// ClassifyOverdue grades an eligible overdue invoice. Thresholds are checked
// most severe first; the first match wins, so a days-based trigger can
// outrank what the reminder count alone would suggest.
func ClassifyOverdue(daysOverdue, reminderCount int) Classification {
	switch {
	case daysOverdue >= criticalDaysOverdue || reminderCount >= 4:
		return Classification{Urgency: UrgencyCritical, Action: ActionEscalate, NextInDays: 14}
	case daysOverdue >= highDaysOverdue || reminderCount >= 3:
		return Classification{Urgency: UrgencyHigh, Action: ActionSendFinalNotice, NextInDays: 7}
	case daysOverdue >= mediumDaysOverdue || reminderCount >= 2:
		return Classification{Urgency: UrgencyMedium, Action: ActionSendReminder, NextInDays: 7}
	default:
		return Classification{Urgency: UrgencyLow, Action: ActionSendReminder, NextInDays: 7}
	}
}
