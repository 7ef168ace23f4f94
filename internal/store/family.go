package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/seahollis/bywater/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func (s *FamilyStore) Create(name string) (*model.Family, error) {
	code := newInviteCode()
	result, err := s.db.Exec(
		`INSERT INTO families (name, invite_code) VALUES (?, ?)`,
		name, code,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	var f model.Family
	err := s.db.QueryRow(
		`SELECT id, name, invite_code, created_at, updated_at FROM families WHERE id = ?`,
		id,
	).Scan(&f.ID, &f.Name, &f.InviteCode, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family: %w", err)
	}
	return &f, nil
}

func (s *FamilyStore) GetByInviteCode(code string) (*model.Family, error) {
	var f model.Family
	err := s.db.QueryRow(
		`SELECT id, name, invite_code, created_at, updated_at FROM families WHERE invite_code = ?`,
		strings.ToLower(strings.TrimSpace(code)),
	).Scan(&f.ID, &f.Name, &f.InviteCode, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family by invite code: %w", err)
	}
	return &f, nil
}

// newInviteCode generates the shareable join code for a new family. The first
// UUID block is enough entropy for a code that is typed by hand.
func newInviteCode() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
