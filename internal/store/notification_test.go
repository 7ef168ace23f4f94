package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/seahollis/bywater/internal/database"
	"github.com/seahollis/bywater/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedFamily(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	f, err := NewFamilyStore(db).Create("Test Family")
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}
	return f.ID
}

func eventReminderNotification(familyID, userID, eventID int64) model.Notification {
	return model.Notification{
		FamilyID: familyID,
		UserID:   userID,
		Type:     model.NotifTypeEventReminder,
		Title:    "Upcoming Event",
		Message:  `"Dentist" starts in 15 minutes`,
		Data: model.EventReminderData{
			EventID:        eventID,
			StartTime:      time.Date(2026, 3, 10, 10, 15, 0, 0, time.UTC),
			AdvanceMinutes: 15,
		},
	}
}

func TestNotificationCreate(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFamily(t, db)
	s := NewNotificationStore(db)

	n, err := s.Create(eventReminderNotification(familyID, 1, 42))
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n == nil {
		t.Fatal("expected notification, got nil")
	}
	if n.Type != model.NotifTypeEventReminder {
		t.Errorf("type = %q", n.Type)
	}
	if n.Read || n.Dismissed {
		t.Error("new notification should be unread and undismissed")
	}
	data, ok := n.Data.(model.EventReminderData)
	if !ok {
		t.Fatalf("data type = %T", n.Data)
	}
	if data.EventID != 42 {
		t.Errorf("event id = %d, want 42", data.EventID)
	}
}

func TestNotificationCreateRequiresData(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFamily(t, db)
	s := NewNotificationStore(db)

	_, err := s.Create(model.Notification{FamilyID: familyID, UserID: 1, Type: model.NotifTypeEventReminder})
	if err == nil {
		t.Fatal("expected error for nil data")
	}
}

func TestNotificationDuplicateEventReminderIgnored(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFamily(t, db)
	s := NewNotificationStore(db)

	first, err := s.Create(eventReminderNotification(familyID, 1, 42))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first == nil {
		t.Fatal("first create returned nil")
	}

	dup, err := s.Create(eventReminderNotification(familyID, 1, 42))
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if dup != nil {
		t.Errorf("duplicate create returned a record, want nil no-op")
	}

	// A different user for the same event is not a duplicate.
	other, err := s.Create(eventReminderNotification(familyID, 2, 42))
	if err != nil {
		t.Fatalf("other user create: %v", err)
	}
	if other == nil {
		t.Error("same event for another user should insert")
	}
}

func TestNotificationTaskTypesNotUniquenessConstrained(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFamily(t, db)
	s := NewNotificationStore(db)

	n := model.Notification{
		FamilyID: familyID,
		UserID:   1,
		Type:     model.NotifTypeTaskDueSoon,
		Title:    "Task Due Soon",
		Message:  `Task "Laundry" is due soon`,
		Data:     model.TaskDueData{TaskID: 7, DueDate: time.Now().UTC()},
	}
	for i := 0; i < 2; i++ {
		created, err := s.Create(n)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if created == nil {
			t.Fatalf("create %d returned nil; task reminders dedup by cooldown, not index", i)
		}
	}
}

func TestNotificationExists(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFamily(t, db)
	s := NewNotificationStore(db)

	if _, err := s.Create(eventReminderNotification(familyID, 1, 42)); err != nil {
		t.Fatalf("create: %v", err)
	}

	exists, err := s.Exists(1, model.NotifTypeEventReminder, 42)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("expected exists = true")
	}

	exists, err = s.Exists(1, model.NotifTypeEventReminder, 43)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("expected exists = false for other event")
	}

	exists, err = s.Exists(2, model.NotifTypeEventReminder, 42)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("expected exists = false for other user")
	}
}

func TestNotificationExistsSince(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFamily(t, db)
	s := NewNotificationStore(db)

	n := model.Notification{
		FamilyID: familyID,
		UserID:   1,
		Type:     model.NotifTypeTaskOverdue,
		Title:    "Task Overdue",
		Message:  `Task "Rent" is overdue`,
		Data:     model.TaskDueData{TaskID: 7, DueDate: time.Now().UTC()},
	}
	if _, err := s.Create(n); err != nil {
		t.Fatalf("create: %v", err)
	}

	types := []string{model.NotifTypeTaskDueSoon, model.NotifTypeTaskOverdue}

	// Either task reminder type within the lookback counts.
	found, err := s.ExistsSince(1, types, 7, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("exists since: %v", err)
	}
	if !found {
		t.Error("expected a recent task_overdue to match")
	}

	// A cutoff after the record was written excludes it.
	found, err = s.ExistsSince(1, types, 7, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("exists since: %v", err)
	}
	if found {
		t.Error("record older than the cutoff should not match")
	}

	found, err = s.ExistsSince(1, types, 8, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("exists since: %v", err)
	}
	if found {
		t.Error("other task should not match")
	}
}

func TestNotificationListAndUnread(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFamily(t, db)
	s := NewNotificationStore(db)

	for eventID := int64(1); eventID <= 3; eventID++ {
		if _, err := s.Create(eventReminderNotification(familyID, 1, eventID)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := s.ListByUser(1, familyID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("list len = %d, want 3", len(list))
	}

	count, err := s.CountUnread(1, familyID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 3 {
		t.Errorf("unread = %d, want 3", count)
	}

	if err := s.MarkRead(list[0].ID, 1); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, _ = s.CountUnread(1, familyID)
	if count != 2 {
		t.Errorf("unread after mark read = %d, want 2", count)
	}

	if err := s.MarkAllRead(1, familyID); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	count, _ = s.CountUnread(1, familyID)
	if count != 0 {
		t.Errorf("unread after mark all = %d, want 0", count)
	}
}

func TestNotificationDismissHidesFromList(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFamily(t, db)
	s := NewNotificationStore(db)

	created, err := s.Create(eventReminderNotification(familyID, 1, 42))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Dismiss(created.ID, 1); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	list, err := s.ListByUser(1, familyID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("dismissed notification still listed")
	}

	// The ledger record survives dismissal; dedup still sees it.
	exists, err := s.Exists(1, model.NotifTypeEventReminder, 42)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("dismissed record should still exist in the ledger")
	}
}
