package model

import "time"

// Task status values
const (
	TaskStatusTodo     = "todo"
	TaskStatusProgress = "progress"
	TaskStatusDone     = "done"
)

type Task struct {
	ID          int64      `json:"id"`
	FamilyID    int64      `json:"family_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	AssigneeID  *int64     `json:"assignee_id"`
	CreatedBy   *int64     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusProgress, TaskStatusDone:
		return true
	}
	return false
}
