package notify

import (
	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/websocket"
)

// HubSink pushes notifications to the recipient's open WebSocket connections
// so the in-app badge updates without a refresh.
type HubSink struct {
	hub *websocket.Hub
}

func NewHubSink(hub *websocket.Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Deliver(n model.Notification) error {
	s.hub.SendToUser(n.UserID, websocket.Message{
		Type:   "notification_created",
		Entity: "notification",
		Action: "created",
		ID:     n.ID,
		UserID: n.UserID,
		Extra: map[string]any{
			"notification_type": n.Type,
			"title":             n.Title,
			"message":           n.Message,
		},
	})
	return nil
}
