package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/notify"
	"github.com/seahollis/bywater/internal/store"
)

type PushHandler struct {
	subs *store.PushSubscriptionStore
	sink *notify.WebPushSink
}

func NewPushHandler(ss *store.PushSubscriptionStore, sink *notify.WebPushSink) *PushHandler {
	return &PushHandler{subs: ss, sink: sink}
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     int64  `json:"user_id"`
		FamilyID   int64  `json:"family_id"`
		Endpoint   string `json:"endpoint"`
		P256dh     string `json:"p256dh"`
		Auth       string `json:"auth"`
		DeviceName string `json:"device_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID <= 0 || req.FamilyID <= 0 || req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "user_id, family_id, endpoint, p256dh, and auth are required")
		return
	}

	sub, err := h.subs.Create(req.UserID, req.FamilyID, req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		log.Printf("failed to create push subscription: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}
	userID, ok := queryInt64(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	if err := h.subs.Delete(id, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt64(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	subs, err := h.subs.ListByUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.sink.VAPIDPublicKey()})
}
