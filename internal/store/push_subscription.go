package store

import (
	"database/sql"
	"fmt"

	"github.com/seahollis/bywater/internal/model"
)

type PushSubscriptionStore struct {
	db *sql.DB
}

func NewPushSubscriptionStore(db *sql.DB) *PushSubscriptionStore {
	return &PushSubscriptionStore{db: db}
}

func (s *PushSubscriptionStore) Create(userID, familyID int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (user_id, family_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		userID, familyID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}

	// last_insert_rowid is connection scoped; on the conflict-update path a
	// pooled connection can report a stale id from an earlier insert. The
	// endpoint is unique, so looking it up is correct on both paths.
	return s.getByEndpoint(endpoint)
}

func (s *PushSubscriptionStore) GetByID(id int64) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.QueryRow(
		`SELECT id, user_id, family_id, endpoint, p256dh_key, auth_key, device_name, created_at
		 FROM push_subscriptions WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.UserID, &sub.FamilyID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return &sub, nil
}

func (s *PushSubscriptionStore) getByEndpoint(endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.QueryRow(
		`SELECT id, user_id, family_id, endpoint, p256dh_key, auth_key, device_name, created_at
		 FROM push_subscriptions WHERE endpoint = ?`, endpoint,
	).Scan(&sub.ID, &sub.UserID, &sub.FamilyID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return &sub, nil
}

func (s *PushSubscriptionStore) ListByUser(userID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, family_id, endpoint, p256dh_key, auth_key, device_name, created_at
		 FROM push_subscriptions WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.FamilyID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PushSubscriptionStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushSubscriptionStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}
