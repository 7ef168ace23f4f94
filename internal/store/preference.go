package store

import (
	"database/sql"
	"fmt"

	"github.com/seahollis/bywater/internal/model"
)

type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// GetOrCreate returns the preference row for (user, family), creating it with
// defaults if the user has never saved preferences.
func (s *PreferenceStore) GetOrCreate(userID, familyID int64) (*model.NotificationPreference, error) {
	p, err := s.get(userID, familyID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	def := model.DefaultNotificationPreference(userID, familyID)
	_, err = s.db.Exec(
		`INSERT INTO notification_preferences
		 (user_id, family_id, task_assignments, task_due_reminders, event_reminders, daily_summary, email_notifications, browser_notifications, reminder_advance_minutes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, family_id) DO NOTHING`,
		userID, familyID,
		boolInt(def.TaskAssignments), boolInt(def.TaskDueReminders), boolInt(def.EventReminders),
		boolInt(def.DailySummary), boolInt(def.EmailNotifications), boolInt(def.BrowserNotifications),
		def.ReminderAdvanceMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert default preferences: %w", err)
	}

	return s.get(userID, familyID)
}

func (s *PreferenceStore) Update(userID, familyID int64, p model.NotificationPreference) (*model.NotificationPreference, error) {
	if p.ReminderAdvanceMinutes < 0 {
		return nil, fmt.Errorf("reminder advance minutes must be non-negative")
	}

	// Ensure the row exists so settings saved before first read still stick.
	if _, err := s.GetOrCreate(userID, familyID); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(
		`UPDATE notification_preferences
		 SET task_assignments = ?, task_due_reminders = ?, event_reminders = ?, daily_summary = ?,
		     email_notifications = ?, browser_notifications = ?, reminder_advance_minutes = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND family_id = ?`,
		boolInt(p.TaskAssignments), boolInt(p.TaskDueReminders), boolInt(p.EventReminders), boolInt(p.DailySummary),
		boolInt(p.EmailNotifications), boolInt(p.BrowserNotifications), p.ReminderAdvanceMinutes,
		userID, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}

	return s.get(userID, familyID)
}

// ListEventReminderPreferences returns one entry per user who has event
// reminders enabled, across all families. The dispatcher groups these by
// advance minutes.
func (s *PreferenceStore) ListEventReminderPreferences() ([]model.EventReminderPreference, error) {
	rows, err := s.db.Query(
		`SELECT user_id, family_id, reminder_advance_minutes
		 FROM notification_preferences WHERE event_reminders = 1`,
	)
	if err != nil {
		return nil, fmt.Errorf("query event reminder preferences: %w", err)
	}
	defer rows.Close()

	var prefs []model.EventReminderPreference
	for rows.Next() {
		var p model.EventReminderPreference
		if err := rows.Scan(&p.UserID, &p.FamilyID, &p.AdvanceMinutes); err != nil {
			return nil, fmt.Errorf("scan event reminder preference: %w", err)
		}
		if p.AdvanceMinutes < 0 {
			p.AdvanceMinutes = model.DefaultReminderAdvanceMinutes
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// TaskDueRemindersEnabled reports whether the user wants due/overdue task
// notifications within the given family. A user with no preference row gets
// the default (enabled).
func (s *PreferenceStore) TaskDueRemindersEnabled(userID, familyID int64) (bool, error) {
	return s.flagEnabled(userID, familyID, "task_due_reminders", true)
}

// TaskAssignmentsEnabled reports whether the user wants task assignment
// notifications within the given family. Defaults to enabled when no row
// exists.
func (s *PreferenceStore) TaskAssignmentsEnabled(userID, familyID int64) (bool, error) {
	return s.flagEnabled(userID, familyID, "task_assignments", true)
}

// EmailNotificationsEnabled reports whether notifications should also go out
// by email for this user in this family. Defaults to disabled.
func (s *PreferenceStore) EmailNotificationsEnabled(userID, familyID int64) (bool, error) {
	return s.flagEnabled(userID, familyID, "email_notifications", false)
}

// BrowserNotificationsEnabled reports whether notifications should also go out
// as browser push for this user in this family. Defaults to disabled.
func (s *PreferenceStore) BrowserNotificationsEnabled(userID, familyID int64) (bool, error) {
	return s.flagEnabled(userID, familyID, "browser_notifications", false)
}

// flagEnabled is family-scoped: a user in two families can hold different
// settings in each.
func (s *PreferenceStore) flagEnabled(userID, familyID int64, column string, def bool) (bool, error) {
	// column is always one of the fixed names above, never user input.
	var enabled int
	err := s.db.QueryRow(
		`SELECT `+column+` FROM notification_preferences WHERE user_id = ? AND family_id = ?`,
		userID, familyID,
	).Scan(&enabled)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s preference: %w", column, err)
	}
	return enabled != 0, nil
}

func (s *PreferenceStore) get(userID, familyID int64) (*model.NotificationPreference, error) {
	var p model.NotificationPreference
	var taskAssign, taskDue, eventRem, daily, email, browser int

	err := s.db.QueryRow(
		`SELECT id, user_id, family_id, task_assignments, task_due_reminders, event_reminders, daily_summary,
		        email_notifications, browser_notifications, reminder_advance_minutes, created_at, updated_at
		 FROM notification_preferences WHERE user_id = ? AND family_id = ?`,
		userID, familyID,
	).Scan(&p.ID, &p.UserID, &p.FamilyID, &taskAssign, &taskDue, &eventRem, &daily, &email, &browser,
		&p.ReminderAdvanceMinutes, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}

	p.TaskAssignments = taskAssign != 0
	p.TaskDueReminders = taskDue != 0
	p.EventReminders = eventRem != 0
	p.DailySummary = daily != 0
	p.EmailNotifications = email != 0
	p.BrowserNotifications = browser != 0
	return &p, nil
}
