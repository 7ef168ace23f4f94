// Package reminder contains the notification dispatch scheduler: it scans
// upcoming calendar events and due tasks on each tick, decides per user which
// reminders are owed right now, and appends each one to the notification
// ledger exactly once.
package reminder

import "time"

// DefaultSlack widens the reminder window on each side of the target instant.
// The dispatcher runs on a fixed cadence rather than at per-event offsets, so
// the window must be at least half the polling interval wide or an event start
// time could fall between two scans. With a one-minute poller, one minute of
// slack guarantees every qualifying event is seen by at least one tick; the
// dedup gate keeps it from firing on more than one.
const DefaultSlack = time.Minute

// Window is an inclusive interval of event start times that should fire a
// reminder on the current tick.
type Window struct {
	From time.Time
	To   time.Time
}

// ReminderWindow maps the current instant and a lead-time preference to the
// interval of start times to remind for now: [now+advance-slack,
// now+advance+slack]. With a zero advance the window is centered on now,
// catching events that start imminently.
func ReminderWindow(now time.Time, advance, slack time.Duration) Window {
	target := now.Add(advance)
	return Window{From: target.Add(-slack), To: target.Add(slack)}
}

// Contains reports whether t falls inside the window. Both bounds are
// inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}
