package reminder_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/seahollis/bywater/internal/database"
	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/notify"
	"github.com/seahollis/bywater/internal/reminder"
	"github.com/seahollis/bywater/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Exercises the whole path: preference rows drive the scan, events come out of
// SQLite, and sent reminders land in the notification ledger where the dedup
// gate sees them on the next tick.
func TestDispatchEndToEnd(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	families := store.NewFamilyStore(db)
	members := store.NewFamilyMemberStore(db)
	events := store.NewEventStore(db)
	tasks := store.NewTaskStore(db)
	prefs := store.NewPreferenceStore(db)
	notifications := store.NewNotificationStore(db)

	family, err := families.Create("Test Family")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if _, err := members.Create(1, family.ID, "Alice", "", "", ""); err != nil {
		t.Fatalf("create member: %v", err)
	}
	if _, err := prefs.GetOrCreate(1, family.ID); err != nil {
		t.Fatalf("create preferences: %v", err)
	}

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	// Event at the default 15-minute lead time, scoped to Alice by name.
	if _, err := events.Create(family.ID, "Dentist", "", now.Add(15*time.Minute), now.Add(16*time.Minute), false, []string{"alice"}, ""); err != nil {
		t.Fatalf("create event: %v", err)
	}

	// Task already overdue, assigned to Alice.
	due := now.Add(-time.Hour)
	assignee := int64(1)
	if _, err := tasks.Create(family.ID, "Pay rent", "", model.TaskStatusTodo, &due, &assignee, nil); err != nil {
		t.Fatalf("create task: %v", err)
	}

	notifier := notify.NewService(notifications, discardLogger())
	d := reminder.NewDispatcher(
		prefs, tasks,
		reminder.NewResolver(events, members),
		reminder.NewGate(notifications),
		notifier, discardLogger(),
	)

	summary, err := d.Run(now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RemindersSent != 2 {
		t.Fatalf("RemindersSent = %d, want 2 (event + overdue task)", summary.RemindersSent)
	}

	list, err := notifications.ListByUser(1, family.ID, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ledger has %d records, want 2", len(list))
	}

	byType := map[string]model.Notification{}
	for _, n := range list {
		byType[n.Type] = n
	}
	if n, ok := byType[model.NotifTypeEventReminder]; !ok {
		t.Error("missing event_reminder record")
	} else if n.Message != `"Dentist" starts in 15 minutes` {
		t.Errorf("event message = %q", n.Message)
	}
	if n, ok := byType[model.NotifTypeTaskOverdue]; !ok {
		t.Error("missing task_overdue record")
	} else if n.Message != `Task "Pay rent" is overdue` {
		t.Errorf("task message = %q", n.Message)
	}

	// The next tick owes nothing: the event reminder is permanent, the task
	// reminder is inside its cooldown.
	summary, err = d.Run(now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Errorf("second run sent %d, want 0", summary.RemindersSent)
	}
}
