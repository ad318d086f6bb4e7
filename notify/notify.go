// Package notify delivers stack-change events to an external webhook as
// signed JSON POSTs. It is the hand-off point between the rescan worker and
// whatever alerting a deployment runs behind it.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/stackprobe/netguard"
	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/store"
)

// Config holds webhook delivery settings.
type Config struct {
	// URL receives the JSON POST for every change event.
	URL string `yaml:"url"`
	// Secret, when set, signs the body with HMAC-SHA256; the hex digest is
	// sent in X-Signature-256 with a "sha256=" prefix.
	Secret string `yaml:"secret"`
	// Timeout bounds one delivery attempt. Default: 10s.
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// changePayload is the wire shape of one delivered event.
type changePayload struct {
	Event          string          `json:"event"`
	Domain         string          `json:"domain"`
	SubscriptionID string          `json:"subscriptionId"`
	OldScanID      string          `json:"oldScanId,omitempty"`
	NewScanID      string          `json:"newScanId"`
	Summary        string          `json:"summary"`
	Diff           scan.ChangeDiff `json:"diff"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// WebhookNotifier posts change events to one configured endpoint.
type WebhookNotifier struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// NewWebhook validates the target and builds a notifier. The URL must be
// public http(s); a configured secret must meet the minimum length.
func NewWebhook(cfg Config, log *slog.Logger) (*WebhookNotifier, error) {
	cfg.defaults()
	if cfg.URL == "" {
		return nil, fmt.Errorf("notify: webhook url is required")
	}
	if err := netguard.ValidateURL(cfg.URL); err != nil {
		return nil, fmt.Errorf("notify: webhook url: %w", err)
	}
	if cfg.Secret != "" {
		if err := netguard.ValidateSecret(cfg.Secret); err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WebhookNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}, nil
}

// NotifyChange delivers one change event. A non-2xx response is an error so
// the event stays unnotified and a later sweep can retry.
func (n *WebhookNotifier) NotifyChange(ctx context.Context, sub *store.Subscription, ev *store.ChangeEvent) error {
	body, err := json.Marshal(changePayload{
		Event:          ev.ChangeType,
		Domain:         ev.Domain,
		SubscriptionID: sub.ID,
		OldScanID:      ev.OldScanID,
		NewScanID:      ev.NewScanID,
		Summary:        ev.Summary,
		Diff:           ev.Diff,
		OccurredAt:     ev.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.Secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+sign(body, n.cfg.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned %d", resp.StatusCode)
	}

	n.log.Info("notify: change delivered",
		"domain", ev.Domain, "change_id", ev.ID, "status", resp.StatusCode)
	return nil
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received X-Signature-256 header against a body,
// for consumers of the webhook. The "sha256=" prefix is optional.
func VerifySignature(body []byte, header, secret string) bool {
	const prefix = "sha256="
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		header = header[len(prefix):]
	}
	decoded, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}
