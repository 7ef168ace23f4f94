package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/reminder"
	"github.com/seahollis/bywater/internal/store"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	dispatcher    *reminder.Dispatcher
}

func NewNotificationHandler(ns *store.NotificationStore, d *reminder.Dispatcher) *NotificationHandler {
	return &NotificationHandler{notifications: ns, dispatcher: d}
}

// Check is the dispatch trigger entrypoint. An external scheduler (or the
// built-in cron) calls it once a minute; it runs one full dispatch cycle and
// reports how many reminders went out. On failure the scheduler is expected to
// simply try again next tick — the dedup gate makes re-runs safe.
func (h *NotificationHandler) Check(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dispatcher.Run(time.Now().UTC())
	if err != nil {
		log.Printf("dispatch cycle failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt64(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	familyID, ok := queryInt64(r, "family_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "family_id query parameter is required")
		return
	}

	notifs, err := h.notifications.ListByUser(userID, familyID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifs == nil {
		notifs = []model.Notification{}
	}

	unread, err := h.notifications.CountUnread(userID, familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count unread notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifs,
		"unread_count":  unread,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	userID, ok := queryInt64(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	if err := h.notifications.MarkRead(id, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt64(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	familyID, ok := queryInt64(r, "family_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "family_id query parameter is required")
		return
	}

	if err := h.notifications.MarkAllRead(userID, familyID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	userID, ok := queryInt64(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	if err := h.notifications.Dismiss(id, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to dismiss notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
