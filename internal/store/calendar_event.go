package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/seahollis/bywater/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(familyID int64, title, description string, startTime, endTime time.Time, allDay bool, assignees []string, location string) (*model.CalendarEvent, error) {
	assigneesJSON, err := encodeAssignees(assignees)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO calendar_events (family_id, title, description, start_time, end_time, all_day, assignees, location)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, title, description, startTime.UTC(), endTime.UTC(), boolInt(allDay), assigneesJSON, location,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRow(
		`SELECT id, family_id, title, description, start_time, end_time, all_day, assignees, location, created_at, updated_at
		 FROM calendar_events WHERE id = ?`,
		id,
	)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

func (s *EventStore) ListByDateRange(familyID int64, start, end time.Time) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, title, description, start_time, end_time, all_day, assignees, location, created_at, updated_at
		 FROM calendar_events
		 WHERE family_id = ? AND start_time < ? AND end_time > ?
		 ORDER BY all_day DESC, start_time ASC`,
		familyID, end.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// FindStartingBetween returns events in any of the given families whose start
// time falls inside [from, to]. This is the reminder window query: both bounds
// are inclusive so an event sitting exactly on a window edge is never lost
// between two scans.
func (s *EventStore) FindStartingBetween(familyIDs []int64, from, to time.Time) ([]model.CalendarEvent, error) {
	if len(familyIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(familyIDs)+2)
	for _, id := range familyIDs {
		args = append(args, id)
	}
	args = append(args, from.UTC(), to.UTC())
	placeholders := strings.Repeat("?,", len(familyIDs)-1) + "?"

	rows, err := s.db.Query(
		`SELECT id, family_id, title, description, start_time, end_time, all_day, assignees, location, created_at, updated_at
		 FROM calendar_events
		 WHERE family_id IN (`+placeholders+`) AND start_time >= ? AND start_time <= ?
		 ORDER BY start_time`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query events starting between: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *EventStore) Update(id int64, title, description string, startTime, endTime time.Time, allDay bool, assignees []string, location string) (*model.CalendarEvent, error) {
	assigneesJSON, err := encodeAssignees(assignees)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE calendar_events
		 SET title = ?, description = ?, start_time = ?, end_time = ?, all_day = ?, assignees = ?, location = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, description, startTime.UTC(), endTime.UTC(), boolInt(allDay), assigneesJSON, location, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

func scanEvent(row rowScanner) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var allDayInt int
	var assigneesJSON string

	err := row.Scan(&e.ID, &e.FamilyID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &allDayInt, &assigneesJSON, &e.Location, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.AllDay = allDayInt != 0
	if err := json.Unmarshal([]byte(assigneesJSON), &e.Assignees); err != nil {
		return nil, fmt.Errorf("decode assignees: %w", err)
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func encodeAssignees(assignees []string) (string, error) {
	if assignees == nil {
		assignees = []string{}
	}
	data, err := json.Marshal(assignees)
	if err != nil {
		return "", fmt.Errorf("encode assignees: %w", err)
	}
	return string(data), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
