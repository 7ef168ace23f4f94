package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/seahollis/bywater/internal/handler"
	"github.com/seahollis/bywater/internal/middleware"
	"github.com/seahollis/bywater/internal/notify"
	"github.com/seahollis/bywater/internal/reminder"
	"github.com/seahollis/bywater/internal/store"
	ws "github.com/seahollis/bywater/internal/websocket"
)

// Config carries the optional delivery transport settings. Sinks whose config
// is absent are simply not wired; the in-app hub sink is always on.
type Config struct {
	CronToken       string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PostmarkToken   string
	FromEmail       string
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	dispatcher     *reminder.Dispatcher
	familyH        *handler.FamilyHandler
	familyMemberH  *handler.FamilyMemberHandler
	taskH          *handler.TaskHandler
	calendarEventH *handler.CalendarEventHandler
	preferenceH    *handler.PreferenceHandler
	notificationH  *handler.NotificationHandler
	pushH          *handler.PushHandler
	cronToken      string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyStore := store.NewFamilyStore(db)
	memberStore := store.NewFamilyMemberStore(db)
	taskStore := store.NewTaskStore(db)
	eventStore := store.NewEventStore(db)
	preferenceStore := store.NewPreferenceStore(db)
	notificationStore := store.NewNotificationStore(db)
	subscriptionStore := store.NewPushSubscriptionStore(db)

	// Delivery sinks, in-app first. Push and email only when configured.
	sinks := []notify.Sink{notify.NewHubSink(hub)}

	var pushSink *notify.WebPushSink
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSink = notify.NewWebPushSink(notify.WebPushConfig{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		}, subscriptionStore, preferenceStore, logger.With("component", "webpush"))
		sinks = append(sinks, pushSink)
	}

	if cfg.PostmarkToken != "" {
		emailClient := notify.NewEmailClient(cfg.PostmarkToken, cfg.FromEmail)
		sinks = append(sinks, notify.NewEmailSink(emailClient, preferenceStore, memberStore))
	}

	notifier := notify.NewService(notificationStore, logger.With("component", "notify"), sinks...)

	resolver := reminder.NewResolver(eventStore, memberStore)
	gate := reminder.NewGate(notificationStore)
	dispatcher := reminder.NewDispatcher(
		preferenceStore, taskStore, resolver, gate, notifier,
		logger.With("component", "reminder"),
	)

	var pushH *handler.PushHandler
	if pushSink != nil {
		pushH = handler.NewPushHandler(subscriptionStore, pushSink)
	}

	return &Server{
		db:             db,
		hub:            hub,
		dispatcher:     dispatcher,
		familyH:        handler.NewFamilyHandler(familyStore, memberStore),
		familyMemberH:  handler.NewFamilyMemberHandler(memberStore),
		taskH:          handler.NewTaskHandler(taskStore, memberStore, preferenceStore, notifier),
		calendarEventH: handler.NewCalendarEventHandler(eventStore),
		preferenceH:    handler.NewPreferenceHandler(preferenceStore),
		notificationH:  handler.NewNotificationHandler(notificationStore, dispatcher),
		pushH:          pushH,
		cronToken:      cfg.CronToken,
		logger:         logger,
	}
}

// Dispatcher exposes the reminder dispatcher for the in-process cron trigger.
func (s *Server) Dispatcher() *reminder.Dispatcher {
	return s.dispatcher
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Family routes
	mux.HandleFunc("POST /api/families", s.familyH.Create)
	mux.HandleFunc("GET /api/families/{id}", s.familyH.Get)
	mux.HandleFunc("POST /api/families/join", s.familyH.Join)

	// Family member routes
	mux.HandleFunc("GET /api/family-members", s.familyMemberH.List)
	mux.HandleFunc("POST /api/family-members", s.familyMemberH.Create)
	mux.HandleFunc("PUT /api/family-members/{id}", s.familyMemberH.Update)
	mux.HandleFunc("DELETE /api/family-members/{id}", s.familyMemberH.Delete)

	// Task routes
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("PUT /api/tasks/{id}/status", s.taskH.UpdateStatus)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	// Calendar event routes
	mux.HandleFunc("POST /api/events", s.calendarEventH.Create)
	mux.HandleFunc("GET /api/events", s.calendarEventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.calendarEventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.calendarEventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.calendarEventH.Delete)

	// Notification preference routes
	mux.HandleFunc("GET /api/preferences", s.preferenceH.Get)
	mux.HandleFunc("PUT /api/preferences", s.preferenceH.Update)

	// Notification center routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)
	mux.HandleFunc("POST /api/notifications/read-all", s.notificationH.MarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/dismiss", s.notificationH.Dismiss)

	// Dispatch trigger — what the external scheduler hits once a minute
	checkGuard := middleware.RequireCronToken(s.cronToken)
	mux.Handle("POST /api/notifications/check", checkGuard(http.HandlerFunc(s.notificationH.Check)))

	// Push subscription routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
