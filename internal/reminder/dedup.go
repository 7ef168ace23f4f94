package reminder

import (
	"time"

	"github.com/seahollis/bywater/internal/model"
)

// TaskReminderCooldown is how long a due/overdue task notification suppresses
// further ones for the same (user, task). A persistently overdue task
// re-reminds after this elapses rather than never again.
const TaskReminderCooldown = 12 * time.Hour

// Ledger is the read side of the notification ledger used for dedup checks.
type Ledger interface {
	Exists(userID int64, notifType string, correlationID int64) (bool, error)
	ExistsSince(userID int64, notifTypes []string, correlationID int64, since time.Time) (bool, error)
}

// Gate suppresses reminders that were already sent. It carries the two dedup
// policies as distinct checks on purpose: event reminders are deduplicated
// forever, task reminders only within a cooldown. Conflating the two would
// silently change behavior on one side or the other.
//
// The check-then-insert pair is not atomic; a single active dispatcher is
// assumed. Under concurrent dispatchers the event-reminder uniqueness index on
// the ledger turns the losing insert into a no-op.
type Gate struct {
	ledger Ledger
}

func NewGate(ledger Ledger) *Gate {
	return &Gate{ledger: ledger}
}

// EventReminderSent reports whether this user was ever sent a reminder for
// this event. Permanent: an event is reminded at most once per user.
func (g *Gate) EventReminderSent(userID, eventID int64) (bool, error) {
	return g.ledger.Exists(userID, model.NotifTypeEventReminder, eventID)
}

// TaskReminderInCooldown reports whether this user received a due-soon or
// overdue notification for this task within the cooldown ending at now.
func (g *Gate) TaskReminderInCooldown(userID, taskID int64, now time.Time) (bool, error) {
	since := now.Add(-TaskReminderCooldown)
	types := []string{model.NotifTypeTaskDueSoon, model.NotifTypeTaskOverdue}
	return g.ledger.ExistsSince(userID, types, taskID, since)
}
