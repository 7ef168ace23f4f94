package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/store"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type FamilyMemberHandler struct {
	members *store.FamilyMemberStore
}

func NewFamilyMemberHandler(s *store.FamilyMemberStore) *FamilyMemberHandler {
	return &FamilyMemberHandler{members: s}
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID, ok := queryInt64(r, "family_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "family_id query parameter is required")
		return
	}

	members, err := h.members.ListByFamily(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list family members")
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      int64  `json:"user_id"`
		FamilyID    int64  `json:"family_id"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		Color       string `json:"color"`
		AvatarEmoji string `json:"avatar_emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}
	if req.UserID <= 0 || req.FamilyID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id and family_id are required")
		return
	}
	if req.Color != "" && !hexColorRegexp.MatchString(req.Color) {
		writeError(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return
	}

	member, err := h.members.Create(req.UserID, req.FamilyID, req.DisplayName, req.Email, req.Color, req.AvatarEmoji)
	if err != nil {
		log.Printf("failed to create family member: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create family member")
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	var req struct {
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		Color       string `json:"color"`
		AvatarEmoji string `json:"avatar_emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}
	if req.Color != "" && !hexColorRegexp.MatchString(req.Color) {
		writeError(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return
	}

	existing, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	member, err := h.members.Update(id, req.DisplayName, req.Email, req.Color, req.AvatarEmoji)
	if err != nil {
		log.Printf("failed to update family member: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update family member")
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := h.members.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete family member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
