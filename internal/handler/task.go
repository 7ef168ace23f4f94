package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/notify"
	"github.com/seahollis/bywater/internal/store"
)

type TaskHandler struct {
	tasks    *store.TaskStore
	members  *store.FamilyMemberStore
	prefs    *store.PreferenceStore
	notifier *notify.Service
}

func NewTaskHandler(ts *store.TaskStore, ms *store.FamilyMemberStore, ps *store.PreferenceStore, n *notify.Service) *TaskHandler {
	return &TaskHandler{tasks: ts, members: ms, prefs: ps, notifier: n}
}

type taskRequest struct {
	FamilyID    int64  `json:"family_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date"`
	AssigneeID  *int64 `json:"assignee_id"`
	// AssignedBy identifies who is making the assignment, for the
	// task_assigned notification.
	AssignedBy *int64 `json:"assigned_by"`
}

func (h *TaskHandler) parseAndValidate(r *http.Request, w http.ResponseWriter) (*taskRequest, *time.Time, bool) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, nil, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return nil, nil, false
	}

	if req.Status == "" {
		req.Status = model.TaskStatusTodo
	}
	if !model.ValidTaskStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be todo, progress, or done")
		return nil, nil, false
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		t, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_date must be RFC3339 format")
			return nil, nil, false
		}
		dueDate = &t
	}

	return &req, dueDate, true
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, dueDate, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}
	if req.FamilyID <= 0 {
		writeError(w, http.StatusBadRequest, "family_id is required")
		return
	}

	task, err := h.tasks.Create(req.FamilyID, req.Title, req.Description, req.Status, dueDate, req.AssigneeID, req.AssignedBy)
	if err != nil {
		log.Printf("failed to create task: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	if task.AssigneeID != nil {
		h.notifyAssignment(task, req.AssignedBy)
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID, ok := queryInt64(r, "family_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "family_id query parameter is required")
		return
	}

	tasks, err := h.tasks.ListByFamily(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	req, dueDate, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	task, err := h.tasks.Update(id, req.Title, req.Description, req.Status, dueDate, req.AssigneeID)
	if err != nil {
		log.Printf("failed to update task: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	// A newly assigned (or reassigned) task notifies the new assignee.
	if task.AssigneeID != nil && (existing.AssigneeID == nil || *existing.AssigneeID != *task.AssigneeID) {
		h.notifyAssignment(task, req.AssignedBy)
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !model.ValidTaskStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be todo, progress, or done")
		return
	}

	task, err := h.tasks.UpdateStatus(id, req.Status)
	if err != nil {
		log.Printf("failed to update task status: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update task status")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// notifyAssignment emits a task_assigned notification to the assignee,
// honoring their task_assignments preference. Notification failures don't
// fail the request; the task write already succeeded.
func (h *TaskHandler) notifyAssignment(task *model.Task, assignedBy *int64) {
	enabled, err := h.prefs.TaskAssignmentsEnabled(*task.AssigneeID, task.FamilyID)
	if err != nil {
		log.Printf("failed to check assignment preference: %v", err)
		return
	}
	if !enabled {
		return
	}

	assignerName := "Someone"
	var assignerID int64
	if assignedBy != nil {
		assignerID = *assignedBy
		if m, err := h.members.GetByUserAndFamily(*assignedBy, task.FamilyID); err == nil && m != nil {
			assignerName = m.DisplayName
		}
	}

	n := model.Notification{
		FamilyID: task.FamilyID,
		UserID:   *task.AssigneeID,
		Type:     model.NotifTypeTaskAssigned,
		Title:    "New Task Assigned",
		Message:  fmt.Sprintf("%s assigned you the task: %s", assignerName, task.Title),
		Data: model.TaskAssignedData{
			TaskID:     task.ID,
			AssignedBy: assignerID,
		},
	}
	if _, err := h.notifier.Notify(n); err != nil {
		log.Printf("failed to send assignment notification: %v", err)
	}
}
