// Package notify delivers operational messages (scenario summaries, backups,
// low-stock scans) to outbound chat and webhook targets.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Notifier sends a message to one target.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// Message is one notification. Event is a short machine tag such as
// "scenario.finished"; Text is the human line.
type Message struct {
	Event  string            `json:"event"`
	Text   string            `json:"text"`
	Fields map[string]string `json:"fields,omitempty"`
	Time   time.Time         `json:"time"`
}

// Registry holds notifiers by name.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[string]Notifier)}
}

func (r *Registry) Register(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifiers[n.Name()] = n
}

func (r *Registry) Get(name string) Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notifiers[name]
}

// Names returns registered notifier names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.notifiers))
	for n := range r.notifiers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Broadcast sends msg to every notifier. Failures are logged and joined.
func (r *Registry) Broadcast(ctx context.Context, msg Message) error {
	if r == nil {
		return nil
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}
	r.mu.RLock()
	targets := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		targets = append(targets, n)
	}
	r.mu.RUnlock()

	var errs []error
	for _, n := range targets {
		if err := n.Notify(ctx, msg); err != nil {
			slog.Warn("notify failed", "target", n.Name(), "event", msg.Event, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// SlackWebhook posts to a Slack incoming webhook.
type SlackWebhook struct {
	WebhookURL string
	Channel    string // optional override
	Username   string // optional
	Client     *http.Client
}

func (s SlackWebhook) Name() string { return "slack" }

func (s SlackWebhook) Notify(ctx context.Context, msg Message) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not set")
	}
	payload := map[string]any{"text": msg.Text}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	if s.Username != "" {
		payload["username"] = s.Username
	}
	return postJSON(ctx, s.Client, s.WebhookURL, payload)
}

// Webhook posts the full Message as JSON to an arbitrary URL.
type Webhook struct {
	URL    string
	Client *http.Client
}

func (w Webhook) Name() string { return "webhook" }

func (w Webhook) Notify(ctx context.Context, msg Message) error {
	if w.URL == "" {
		return fmt.Errorf("webhook URL not set")
	}
	return postJSON(ctx, w.Client, w.URL, msg)
}

func postJSON(ctx context.Context, client *http.Client, url string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// FromURLs builds a registry with a Slack and/or generic webhook target.
// Empty URLs are skipped.
func FromURLs(slackURL, webhookURL string) *Registry {
	r := NewRegistry()
	if slackURL != "" {
		r.Register(SlackWebhook{WebhookURL: slackURL, Username: "aura"})
	}
	if webhookURL != "" {
		r.Register(Webhook{URL: webhookURL})
	}
	return r
}
