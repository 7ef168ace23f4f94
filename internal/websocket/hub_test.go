package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var msgs []Message
	for {
		select {
		case data := <-c.send:
			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("unmarshal message: %v", err)
			}
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := newTestHub()
	c := NewClient(hub, nil, 1)

	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Errorf("count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("count = %d, want 0", hub.ClientCount())
	}

	// Unregister of an unknown client is a no-op, not a double close.
	hub.Unregister(c)
}

func TestHubBroadcastReachesAll(t *testing.T) {
	hub := newTestHub()
	alice := NewClient(hub, nil, 1)
	bob := NewClient(hub, nil, 2)
	hub.Register(alice)
	hub.Register(bob)

	hub.Broadcast(Message{Type: "entity_changed", Entity: "task", Action: "updated", ID: 5})

	for _, c := range []*Client{alice, bob} {
		msgs := drain(t, c)
		if len(msgs) != 1 {
			t.Fatalf("client %d got %d messages, want 1", c.userID, len(msgs))
		}
		if msgs[0].Entity != "task" || msgs[0].ID != 5 {
			t.Errorf("message = %+v", msgs[0])
		}
	}
}

func TestHubSendToUserFilters(t *testing.T) {
	hub := newTestHub()
	alice := NewClient(hub, nil, 1)
	aliceTablet := NewClient(hub, nil, 1)
	bob := NewClient(hub, nil, 2)
	hub.Register(alice)
	hub.Register(aliceTablet)
	hub.Register(bob)

	hub.SendToUser(1, Message{Type: "notification_created", UserID: 1, ID: 9})

	if msgs := drain(t, alice); len(msgs) != 1 {
		t.Errorf("alice got %d messages, want 1", len(msgs))
	}
	if msgs := drain(t, aliceTablet); len(msgs) != 1 {
		t.Errorf("alice's second connection got %d messages, want 1", len(msgs))
	}
	if msgs := drain(t, bob); len(msgs) != 0 {
		t.Errorf("bob got %d messages, want 0", len(msgs))
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := newTestHub()
	c := NewClient(hub, nil, 1)
	hub.Register(c)

	// Nothing drains the channel; overflow must not block the sender.
	for i := 0; i < sendBufferSize+5; i++ {
		hub.Broadcast(Message{Type: "entity_changed", ID: int64(i)})
	}

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
}
