package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/seahollis/bywater/internal/store"
)

type FamilyHandler struct {
	families *store.FamilyStore
	members  *store.FamilyMemberStore
}

func NewFamilyHandler(fs *store.FamilyStore, ms *store.FamilyMemberStore) *FamilyHandler {
	return &FamilyHandler{families: fs, members: ms}
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	family, err := h.families.Create(req.Name)
	if err != nil {
		log.Printf("failed to create family: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create family")
		return
	}

	writeJSON(w, http.StatusCreated, family)
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid family id")
		return
	}

	family, err := h.families.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family")
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}
	writeJSON(w, http.StatusOK, family)
}

// Join adds a user to the family matching an invite code.
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode  string `json:"invite_code"`
		UserID      int64  `json:"user_id"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.UserID <= 0 || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "user_id and display_name are required")
		return
	}

	family, err := h.families.GetByInviteCode(req.InviteCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up invite code")
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "invite code not found")
		return
	}

	existing, err := h.members.GetByUserAndFamily(req.UserID, family.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}

	member, err := h.members.Create(req.UserID, family.ID, req.DisplayName, req.Email, "", "")
	if err != nil {
		log.Printf("failed to join family: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to join family")
		return
	}

	writeJSON(w, http.StatusCreated, member)
}
