package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"github.com/seahollis/bywater/internal/model"
	"github.com/seahollis/bywater/internal/store"
)

const defaultPostmarkURL = "https://api.postmarkapp.com/email"

// EmailClient sends transactional email through Postmark.
type EmailClient struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
}

type EmailOption func(*EmailClient)

func WithHTTPClient(c *http.Client) EmailOption {
	return func(cl *EmailClient) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint. Tests point this at a local
// server.
func WithAPIURL(url string) EmailOption {
	return func(cl *EmailClient) {
		cl.apiURL = url
	}
}

func NewEmailClient(serverToken, fromEmail string, opts ...EmailOption) *EmailClient {
	c := &EmailClient{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      defaultPostmarkURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *EmailClient) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send sends a plain notification email.
func (c *EmailClient) Send(toEmail, subject, message string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: fmt.Sprintf("<p>%s</p>", html.EscapeString(message)),
		TextBody: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}

// EmailSink delivers notifications by email to users who enabled email
// notifications, looking up the recipient address in the member directory.
type EmailSink struct {
	client  *EmailClient
	prefs   *store.PreferenceStore
	members *store.FamilyMemberStore
}

func NewEmailSink(client *EmailClient, prefs *store.PreferenceStore, members *store.FamilyMemberStore) *EmailSink {
	return &EmailSink{client: client, prefs: prefs, members: members}
}

func (s *EmailSink) Deliver(n model.Notification) error {
	enabled, err := s.prefs.EmailNotificationsEnabled(n.UserID, n.FamilyID)
	if err != nil {
		return fmt.Errorf("check email notification preference: %w", err)
	}
	if !enabled {
		return nil
	}

	member, err := s.members.GetByUserAndFamily(n.UserID, n.FamilyID)
	if err != nil {
		return fmt.Errorf("look up member: %w", err)
	}
	if member == nil || member.Email == "" {
		// No address on file is not an error; there is nowhere to deliver.
		return nil
	}

	return s.client.Send(member.Email, n.Title, n.Message)
}
