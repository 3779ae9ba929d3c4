package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/billfold/billfold/internal/billing"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestDaysBetweenCountsCalendarDays(t *testing.T) {
	from := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	require.Equal(t, 1, daysBetween(from, to))
	require.Equal(t, 0, daysBetween(to, to))
	require.Equal(t, -1, daysBetween(to, from))
}

func TestShouldSendReminderFirstReminderCadence(t *testing.T) {
	now := day(2026, 3, 10)
	inv := billing.Invoice{ID: 1, ReminderCount: 0}

	inv.DueDate = day(2026, 3, 8) // 2 days overdue
	require.False(t, ShouldSendReminder(inv, now))

	inv.DueDate = day(2026, 3, 7) // 3 days overdue
	require.True(t, ShouldSendReminder(inv, now))
}

func TestShouldSendReminderRepeatCadence(t *testing.T) {
	now := day(2026, 3, 20)
	inv := billing.Invoice{
		ID:            1,
		DueDate:       day(2026, 3, 1),
		ReminderCount: 1,
	}

	inv.LastReminderSent = ptrTime(day(2026, 3, 14)) // 6 days ago
	require.False(t, ShouldSendReminder(inv, now))

	inv.LastReminderSent = ptrTime(day(2026, 3, 13)) // 7 days ago
	require.True(t, ShouldSendReminder(inv, now))

	// Without a recorded send a repeat can never fire.
	inv.LastReminderSent = nil
	require.False(t, ShouldSendReminder(inv, now))
}

func TestShouldSendReminderLateCadence(t *testing.T) {
	now := day(2026, 4, 1)
	inv := billing.Invoice{
		ID:            1,
		DueDate:       day(2026, 2, 1),
		ReminderCount: 3,
	}

	inv.LastReminderSent = ptrTime(day(2026, 3, 19)) // 13 days ago
	require.False(t, ShouldSendReminder(inv, now))

	inv.LastReminderSent = ptrTime(day(2026, 3, 18)) // 14 days ago
	require.True(t, ShouldSendReminder(inv, now))
}

func TestShouldSendReminderSameDayGuard(t *testing.T) {
	now := time.Date(2026, 3, 20, 18, 0, 0, 0, time.UTC)
	inv := billing.Invoice{
		ID:               1,
		DueDate:          day(2026, 3, 1),
		ReminderCount:    1,
		LastReminderSent: ptrTime(time.Date(2026, 3, 20, 2, 0, 0, 0, time.UTC)),
	}
	require.False(t, ShouldSendReminder(inv, now))
}

func TestShouldSendReminderCoolDownOverridesCadence(t *testing.T) {
	now := day(2026, 3, 20)
	inv := billing.Invoice{
		ID:               1,
		DueDate:          day(2026, 3, 1),
		ReminderCount:    1,
		LastReminderSent: ptrTime(day(2026, 3, 10)),
		NextReminderDate: ptrTime(day(2026, 3, 25)),
	}
	require.False(t, ShouldSendReminder(inv, now))

	inv.NextReminderDate = ptrTime(day(2026, 3, 19))
	require.True(t, ShouldSendReminder(inv, now))
}

func TestShouldSendPreDueReminderWindows(t *testing.T) {
	now := day(2026, 3, 10)

	cases := []struct {
		name     string
		dueIn    int
		sent     int
		lastSent *time.Time
		want     bool
	}{
		{name: "seven days out, first nudge", dueIn: 7, sent: 0, want: true},
		{name: "six days out, first nudge", dueIn: 6, sent: 0, want: true},
		{name: "seven days out, already nudged", dueIn: 7, sent: 1, want: false},
		{name: "five days out never reminds", dueIn: 5, sent: 0, want: false},
		{name: "three days out never reminds", dueIn: 3, sent: 0, want: false},
		{name: "one day out never reminds", dueIn: 1, sent: 0, want: false},
		{name: "due today, no prior nudges", dueIn: 0, sent: 0, want: true},
		{name: "due today, missed the week-out nudge", dueIn: 0, sent: 1, want: true},
		{name: "due today, both nudges sent", dueIn: 0, sent: 2, want: false},
		{name: "past due is not pre-due", dueIn: -1, sent: 0, want: false},
		{
			name:     "nudged two hours ago",
			dueIn:    0,
			sent:     1,
			lastSent: ptrTime(now.Add(-2 * time.Hour)),
			want:     false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := billing.Invoice{
				ID:                     1,
				DueDate:                now.AddDate(0, 0, tc.dueIn),
				PreDueRemindersSent:    tc.sent,
				LastPreDueReminderSent: tc.lastSent,
			}
			require.Equal(t, tc.want, ShouldSendPreDueReminder(inv, now))
		})
	}
}

func TestClassifyOverdueFirstMatchWins(t *testing.T) {
	cases := []struct {
		name        string
		daysOverdue int
		count       int
		urgency     Urgency
		action      Action
		nextInDays  int
	}{
		{name: "sixty days is critical regardless of count", daysOverdue: 65, count: 1, urgency: UrgencyCritical, action: ActionEscalate, nextInDays: 14},
		{name: "sixty days exactly", daysOverdue: 60, count: 0, urgency: UrgencyCritical, action: ActionEscalate, nextInDays: 14},
		{name: "four reminders is critical regardless of age", daysOverdue: 10, count: 4, urgency: UrgencyCritical, action: ActionEscalate, nextInDays: 14},
		{name: "thirty days is high", daysOverdue: 35, count: 1, urgency: UrgencyHigh, action: ActionSendFinalNotice, nextInDays: 7},
		{name: "three reminders is high", daysOverdue: 10, count: 3, urgency: UrgencyHigh, action: ActionSendFinalNotice, nextInDays: 7},
		{name: "fourteen days is medium", daysOverdue: 20, count: 0, urgency: UrgencyMedium, action: ActionSendReminder, nextInDays: 7},
		{name: "two reminders is medium", daysOverdue: 10, count: 2, urgency: UrgencyMedium, action: ActionSendReminder, nextInDays: 7},
		{name: "young invoice is low", daysOverdue: 5, count: 0, urgency: UrgencyLow, action: ActionSendReminder, nextInDays: 7},
		{name: "thirteen days one reminder is low", daysOverdue: 13, count: 1, urgency: UrgencyLow, action: ActionSendReminder, nextInDays: 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cls := ClassifyOverdue(tc.daysOverdue, tc.count)
			require.Equal(t, tc.urgency, cls.Urgency)
			require.Equal(t, tc.action, cls.Action)
			require.Equal(t, tc.nextInDays, cls.NextInDays)
		})
	}
}
