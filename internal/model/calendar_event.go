package model

import "time"

// CalendarEvent is a scheduled event on a family's calendar. An empty
// Assignees list means the event is visible to the whole family; otherwise it
// lists the display names of the members it applies to.
type CalendarEvent struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	AllDay      bool      `json:"all_day"`
	Assignees   []string  `json:"assignees"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
