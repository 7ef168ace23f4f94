package model

import "time"

// DefaultReminderAdvanceMinutes is the lead time applied when a user has never
// saved notification preferences.
const DefaultReminderAdvanceMinutes = 15

// NotificationPreference holds a user's notification settings within one
// family. A row is created lazily with defaults on first access.
type NotificationPreference struct {
	ID                     int64     `json:"id"`
	UserID                 int64     `json:"user_id"`
	FamilyID               int64     `json:"family_id"`
	TaskAssignments        bool      `json:"task_assignments"`
	TaskDueReminders       bool      `json:"task_due_reminders"`
	EventReminders         bool      `json:"event_reminders"`
	DailySummary           bool      `json:"daily_summary"`
	EmailNotifications     bool      `json:"email_notifications"`
	BrowserNotifications   bool      `json:"browser_notifications"`
	ReminderAdvanceMinutes int       `json:"reminder_advance_minutes"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// DefaultNotificationPreference returns the preference row created on first
// access for a user who has never opened the settings panel.
func DefaultNotificationPreference(userID, familyID int64) NotificationPreference {
	return NotificationPreference{
		UserID:                 userID,
		FamilyID:               familyID,
		TaskAssignments:        true,
		TaskDueReminders:       true,
		EventReminders:         true,
		DailySummary:           false,
		EmailNotifications:     false,
		BrowserNotifications:   false,
		ReminderAdvanceMinutes: DefaultReminderAdvanceMinutes,
	}
}

// EventReminderPreference is the slice of a preference row the reminder
// dispatcher cares about: who wants event reminders, in which family, and how
// far in advance.
type EventReminderPreference struct {
	UserID         int64
	FamilyID       int64
	AdvanceMinutes int
}
