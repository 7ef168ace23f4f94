package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/store"
)

type CalendarEventHandler struct {
	events *store.EventStore
}

func NewCalendarEventHandler(es *store.EventStore) *CalendarEventHandler {
	return &CalendarEventHandler{events: es}
}

type eventRequest struct {
	FamilyID    int64    `json:"family_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	AllDay      bool     `json:"all_day"`
	Assignees   []string `json:"assignees"`
	Location    string   `json:"location"`
}

func (h *CalendarEventHandler) parseAndValidate(r *http.Request, w http.ResponseWriter) (*eventRequest, time.Time, time.Time, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, time.Time{}, time.Time{}, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return nil, time.Time{}, time.Time{}, false
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_time must be RFC3339 format")
		return nil, time.Time{}, time.Time{}, false
	}

	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_time must be RFC3339 format")
		return nil, time.Time{}, time.Time{}, false
	}

	if !startTime.Before(endTime) {
		writeError(w, http.StatusBadRequest, "start_time must be before end_time")
		return nil, time.Time{}, time.Time{}, false
	}

	// Assignee names are free text matched against member display names at
	// dispatch time; blank entries are dropped here.
	var assignees []string
	for _, name := range req.Assignees {
		if name = strings.TrimSpace(name); name != "" {
			assignees = append(assignees, name)
		}
	}
	req.Assignees = assignees

	return &req, startTime, endTime, true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, startTime, endTime, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}
	if req.FamilyID <= 0 {
		writeError(w, http.StatusBadRequest, "family_id is required")
		return
	}

	event, err := h.events.Create(req.FamilyID, req.Title, req.Description, startTime, endTime, req.AllDay, req.Assignees, req.Location)
	if err != nil {
		log.Printf("failed to create calendar event: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID, ok := queryInt64(r, "family_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "family_id query parameter is required")
		return
	}

	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required")
		return
	}

	start, err := parseFlexibleTime(startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD format")
		return
	}

	end, err := parseFlexibleTime(endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD format")
		return
	}

	events, err := h.events.ListByDateRange(familyID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	event, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	req, startTime, endTime, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	existing, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	event, err := h.events.Update(id, req.Title, req.Description, startTime, endTime, req.AllDay, req.Assignees, req.Location)
	if err != nil {
		log.Printf("failed to update calendar event: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := h.events.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
