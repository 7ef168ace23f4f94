package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Notification type constants
const (
	NotifTypeEventReminder = "event_reminder"
	NotifTypeTaskDueSoon   = "task_due_soon"
	NotifTypeTaskOverdue   = "task_overdue"
	NotifTypeTaskAssigned  = "task_assigned"
)

// Notification is one entry in the append-only notification ledger. Records
// are created exclusively by the reminder dispatcher and the task-assignment
// flow; UI flows may mark them read or dismissed but never change anything
// else.
type Notification struct {
	ID        int64            `json:"id"`
	FamilyID  int64            `json:"family_id"`
	UserID    int64            `json:"user_id"`
	Type      string           `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      NotificationData `json:"data"`
	Read      bool             `json:"read"`
	Dismissed bool             `json:"dismissed"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationData is the typed payload carried by a notification. Every
// variant names the entity it correlates to; the dedup gate keys on
// (user, type, CorrelationID).
type NotificationData interface {
	CorrelationID() int64
}

// EventReminderData is the payload for event_reminder notifications.
type EventReminderData struct {
	EventID                 int64     `json:"event_id"`
	StartTime               time.Time `json:"start_time"`
	AdvanceMinutes          int       `json:"advance_minutes"`
	ActualMinutesUntilEvent int       `json:"actual_minutes_until_event"`
}

func (d EventReminderData) CorrelationID() int64 { return d.EventID }

// TaskDueData is the payload for task_due_soon and task_overdue notifications.
type TaskDueData struct {
	TaskID  int64     `json:"task_id"`
	DueDate time.Time `json:"due_date"`
}

func (d TaskDueData) CorrelationID() int64 { return d.TaskID }

// TaskAssignedData is the payload for task_assigned notifications.
type TaskAssignedData struct {
	TaskID     int64 `json:"task_id"`
	AssignedBy int64 `json:"assigned_by"`
}

func (d TaskAssignedData) CorrelationID() int64 { return d.TaskID }

// DecodeNotificationData unmarshals a stored payload into the variant for the
// given notification type.
func DecodeNotificationData(notifType string, raw []byte) (NotificationData, error) {
	switch notifType {
	case NotifTypeEventReminder:
		var d EventReminderData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode event reminder data: %w", err)
		}
		return d, nil
	case NotifTypeTaskDueSoon, NotifTypeTaskOverdue:
		var d TaskDueData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode task due data: %w", err)
		}
		return d, nil
	case NotifTypeTaskAssigned:
		var d TaskAssignedData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode task assigned data: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown notification type %q", notifType)
	}
}

type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	FamilyID   int64     `json:"family_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
