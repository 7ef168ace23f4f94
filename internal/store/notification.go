package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/seahollis/bywater/internal/model"
)

// NotificationStore is the append-only notification ledger. A record existing
// here is the source of truth for "this reminder is owed"; delivery transports
// read from it and their failures never remove anything.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Create appends a notification record. For event reminders a duplicate
// (user, type, correlation) insert is silently ignored by the partial unique
// index; in that case Create returns (nil, nil) so callers can treat the race
// as an idempotent no-op rather than an error.
func (s *NotificationStore) Create(n model.Notification) (*model.Notification, error) {
	if n.Data == nil {
		return nil, fmt.Errorf("notification data is required")
	}

	dataJSON, err := json.Marshal(n.Data)
	if err != nil {
		return nil, fmt.Errorf("encode notification data: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO notifications (family_id, user_id, type, title, message, data, correlation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.FamilyID, n.UserID, n.Type, n.Title, n.Message, string(dataJSON), n.Data.CorrelationID(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NotificationStore) GetByID(id int64) (*model.Notification, error) {
	row := s.db.QueryRow(
		`SELECT id, family_id, user_id, type, title, message, data, read, dismissed, created_at
		 FROM notifications WHERE id = ?`,
		id,
	)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}
	return n, nil
}

// Exists reports whether any record matches (user, type, correlation id),
// regardless of age. This is the permanent dedup check for event reminders.
func (s *NotificationStore) Exists(userID int64, notifType string, correlationID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications
		 WHERE user_id = ? AND type = ? AND correlation_id = ?`,
		userID, notifType, correlationID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check notification exists: %w", err)
	}
	return count > 0, nil
}

// ExistsSince reports whether any record of one of the given types matches
// (user, correlation id) and was created at or after since. This is the
// cooldown dedup check for task reminders.
func (s *NotificationStore) ExistsSince(userID int64, notifTypes []string, correlationID int64, since time.Time) (bool, error) {
	if len(notifTypes) == 0 {
		return false, nil
	}

	args := make([]any, 0, len(notifTypes)+3)
	args = append(args, userID, correlationID)
	for _, t := range notifTypes {
		args = append(args, t)
	}
	args = append(args, since.UTC())
	placeholders := strings.Repeat("?,", len(notifTypes)-1) + "?"

	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications
		 WHERE user_id = ? AND correlation_id = ? AND type IN (`+placeholders+`) AND datetime(created_at) >= datetime(?)`,
		args...,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check notification exists since: %w", err)
	}
	return count > 0, nil
}

func (s *NotificationStore) ListByUser(userID, familyID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, family_id, user_id, type, title, message, data, read, dismissed, created_at
		 FROM notifications
		 WHERE user_id = ? AND family_id = ? AND dismissed = 0
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, familyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifs []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, *n)
	}
	return notifs, rows.Err()
}

func (s *NotificationStore) CountUnread(userID, familyID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications
		 WHERE user_id = ? AND family_id = ? AND read = 0 AND dismissed = 0`,
		userID, familyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(id, userID int64) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(userID, familyID int64) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND family_id = ? AND read = 0`,
		userID, familyID,
	)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *NotificationStore) Dismiss(id, userID int64) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET dismissed = 1, read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("dismiss notification: %w", err)
	}
	return nil
}

func scanNotification(row rowScanner) (*model.Notification, error) {
	var n model.Notification
	var dataJSON string
	var readInt, dismissedInt int

	err := row.Scan(&n.ID, &n.FamilyID, &n.UserID, &n.Type, &n.Title, &n.Message, &dataJSON, &readInt, &dismissedInt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	n.Read = readInt != 0
	n.Dismissed = dismissedInt != 0

	data, err := model.DecodeNotificationData(n.Type, []byte(dataJSON))
	if err != nil {
		return nil, err
	}
	n.Data = data
	return &n, nil
}
