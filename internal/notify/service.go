// Package notify turns notification records into deliveries. The ledger
// insert is the source of truth for "owed": it happens first, and the sinks
// (in-app badge, browser push, email) are fire-and-forget behind it. A sink
// failing never rolls the record back.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/store"
)

// Sink delivers a stored notification over one transport.
type Sink interface {
	Deliver(n model.Notification) error
}

// Service appends notifications to the ledger and fans them out to sinks.
type Service struct {
	notifications *store.NotificationStore
	sinks         []Sink
	logger        *slog.Logger
}

func NewService(notifications *store.NotificationStore, logger *slog.Logger, sinks ...Sink) *Service {
	return &Service{notifications: notifications, sinks: sinks, logger: logger}
}

// Notify appends the notification and delivers it. A duplicate append (the
// ledger's uniqueness constraint fired under a concurrent dispatcher) returns
// (nil, nil): nothing new is owed, so nothing is delivered and nothing failed.
func (s *Service) Notify(n model.Notification) (*model.Notification, error) {
	created, err := s.notifications.Create(n)
	if err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}
	if created == nil {
		return nil, nil
	}

	for _, sink := range s.sinks {
		if err := sink.Deliver(*created); err != nil {
			s.logger.Warn("deliver notification",
				"notification_id", created.ID, "type", created.Type, "error", err)
		}
	}
	return created, nil
}
