package notify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/store"
)

// ErrSubscriptionExpired is returned when a push subscription is no longer
// valid (410 Gone).
var ErrSubscriptionExpired = errors.New("push subscription expired")

// WebPushConfig holds VAPID configuration.
type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// pushPayload is the JSON sent to the push service.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// WebPushSink delivers notifications as browser push messages to users who
// enabled browser notifications. Expired subscriptions are pruned as they are
// discovered.
type WebPushSink struct {
	cfg    WebPushConfig
	subs   *store.PushSubscriptionStore
	prefs  *store.PreferenceStore
	logger *slog.Logger
}

func NewWebPushSink(cfg WebPushConfig, subs *store.PushSubscriptionStore, prefs *store.PreferenceStore, logger *slog.Logger) *WebPushSink {
	if cfg.Subscriber == "" {
		cfg.Subscriber = "mailto:noreply@bywater.local"
	}
	return &WebPushSink{cfg: cfg, subs: subs, prefs: prefs, logger: logger}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *WebPushSink) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

func (s *WebPushSink) Deliver(n model.Notification) error {
	enabled, err := s.prefs.BrowserNotificationsEnabled(n.UserID, n.FamilyID)
	if err != nil {
		return fmt.Errorf("check browser notification preference: %w", err)
	}
	if !enabled {
		return nil
	}

	subs, err := s.subs.ListByUser(n.UserID)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}

	payload := pushPayload{
		Title: n.Title,
		Body:  n.Message,
		Tag:   fmt.Sprintf("%s-%d", n.Type, n.Data.CorrelationID()),
	}

	for _, sub := range subs {
		if err := s.sendOne(&sub, payload); err != nil {
			if errors.Is(err, ErrSubscriptionExpired) {
				s.subs.DeleteByEndpoint(sub.Endpoint)
				continue
			}
			s.logger.Warn("send web push", "user_id", n.UserID, "error", err)
		}
	}
	return nil
}

func (s *WebPushSink) sendOne(sub *model.PushSubscription, payload pushPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrSubscriptionExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
