package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/seahollis/bywater/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) Create(familyID int64, title, description, status string, dueDate *time.Time, assigneeID, createdBy *int64) (*model.Task, error) {
	result, err := s.db.Exec(
		`INSERT INTO tasks (family_id, title, description, status, due_date, assignee_id, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		familyID, title, description, status, nullTime(dueDate), nullInt(assigneeID), nullInt(createdBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(
		`SELECT id, family_id, title, description, status, due_date, assignee_id, created_by, created_at, updated_at
		 FROM tasks WHERE id = ?`,
		id,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByFamily(familyID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, title, description, status, due_date, assignee_id, created_by, created_at, updated_at
		 FROM tasks WHERE family_id = ? ORDER BY created_at DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// FindDueTasks returns open assigned tasks whose due date falls at or before
// the given instant. There is no lower bound: already-overdue tasks keep
// coming back until they are done or unassigned.
func (s *TaskStore) FindDueTasks(before time.Time) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, title, description, status, due_date, assignee_id, created_by, created_at, updated_at
		 FROM tasks
		 WHERE status = ? AND assignee_id IS NOT NULL AND due_date IS NOT NULL AND due_date <= ?
		 ORDER BY due_date`,
		model.TaskStatusTodo, before.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *TaskStore) Update(id int64, title, description, status string, dueDate *time.Time, assigneeID *int64) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks
		 SET title = ?, description = ?, status = ?, due_date = ?, assignee_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, description, status, nullTime(dueDate), nullInt(assigneeID), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) UpdateStatus(id int64, status string) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var t model.Task
	var dueDate sql.NullTime
	var assigneeID, createdBy sql.NullInt64

	err := row.Scan(&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.Status, &dueDate, &assigneeID, &createdBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.Int64
	}
	if createdBy.Valid {
		t.CreatedBy = &createdBy.Int64
	}
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}
