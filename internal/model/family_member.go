package model

import "time"

type FamilyMember struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	FamilyID    int64     `json:"family_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Color       string    `json:"color"`
	AvatarEmoji string    `json:"avatar_emoji"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
