package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/seahollis/bywater/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

func (s *FamilyMemberStore) Create(userID, familyID int64, displayName, email, color, avatarEmoji string) (*model.FamilyMember, error) {
	if color == "" {
		color = "#3B82F6"
	}
	result, err := s.db.Exec(
		`INSERT INTO family_members (user_id, family_id, display_name, email, color, avatar_emoji)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, familyID, displayName, email, color, avatarEmoji,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *FamilyMemberStore) GetByID(id int64) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := s.db.QueryRow(
		`SELECT id, user_id, family_id, display_name, email, color, avatar_emoji, created_at, updated_at
		 FROM family_members WHERE id = ?`,
		id,
	).Scan(&m.ID, &m.UserID, &m.FamilyID, &m.DisplayName, &m.Email, &m.Color, &m.AvatarEmoji, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family member: %w", err)
	}
	return &m, nil
}

func (s *FamilyMemberStore) GetByUserAndFamily(userID, familyID int64) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := s.db.QueryRow(
		`SELECT id, user_id, family_id, display_name, email, color, avatar_emoji, created_at, updated_at
		 FROM family_members WHERE user_id = ? AND family_id = ?`,
		userID, familyID,
	).Scan(&m.ID, &m.UserID, &m.FamilyID, &m.DisplayName, &m.Email, &m.Color, &m.AvatarEmoji, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family member by user: %w", err)
	}
	return &m, nil
}

func (s *FamilyMemberStore) ListByFamily(familyID int64) ([]model.FamilyMember, error) {
	return s.ListByFamilies([]int64{familyID})
}

// ListByFamilies returns the members of every given family in one query. The
// reminder dispatcher uses this as its member directory for assignee
// resolution, one lookup per lead-time group.
func (s *FamilyMemberStore) ListByFamilies(familyIDs []int64) ([]model.FamilyMember, error) {
	if len(familyIDs) == 0 {
		return nil, nil
	}

	args := make([]any, len(familyIDs))
	for i, id := range familyIDs {
		args[i] = id
	}
	placeholders := strings.Repeat("?,", len(familyIDs)-1) + "?"

	rows, err := s.db.Query(
		`SELECT id, user_id, family_id, display_name, email, color, avatar_emoji, created_at, updated_at
		 FROM family_members WHERE family_id IN (`+placeholders+`) ORDER BY family_id, display_name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		var m model.FamilyMember
		if err := rows.Scan(&m.ID, &m.UserID, &m.FamilyID, &m.DisplayName, &m.Email, &m.Color, &m.AvatarEmoji, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *FamilyMemberStore) Update(id int64, displayName, email, color, avatarEmoji string) (*model.FamilyMember, error) {
	_, err := s.db.Exec(
		`UPDATE family_members
		 SET display_name = ?, email = ?, color = ?, avatar_emoji = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		displayName, email, color, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyMemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM family_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	return nil
}
