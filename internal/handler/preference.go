package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/store"
)

type PreferenceHandler struct {
	prefs *store.PreferenceStore
}

func NewPreferenceHandler(ps *store.PreferenceStore) *PreferenceHandler {
	return &PreferenceHandler{prefs: ps}
}

// Get returns the user's notification preferences, creating the row with
// defaults if this is their first visit to the settings panel.
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	prefs, err := h.prefs.GetOrCreate(userID, familyID)
	if err != nil {
		log.Printf("failed to load preferences: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.NotificationPreference
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID <= 0 || req.FamilyID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id and family_id are required")
		return
	}
	if req.ReminderAdvanceMinutes < 0 {
		writeError(w, http.StatusBadRequest, "reminder_advance_minutes must be non-negative")
		return
	}

	prefs, err := h.prefs.Update(req.UserID, req.FamilyID, req)
	if err != nil {
		log.Printf("failed to update preferences: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
