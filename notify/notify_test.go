package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// testNotifier builds a notifier pointed at a local server, skipping the
// public-address check that NewWebhook applies to real targets.
func testNotifier(url, secret string) *WebhookNotifier {
	cfg := Config{URL: url, Secret: secret}
	cfg.defaults()
	return &WebhookNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testEvent() (*store.Subscription, *store.ChangeEvent) {
	sub := &store.Subscription{ID: "sub_1", Domain: "acme.example"}
	ev := &store.ChangeEvent{
		ID:         "chg_1",
		Domain:     "acme.example",
		OldScanID:  "scan_1",
		NewScanID:  "scan_2",
		ChangeType: "stack_change",
		Summary:    "Added: payments: Stripe",
		Diff:       scan.ChangeDiff{Added: []string{"payments: Stripe"}},
		CreatedAt:  time.Now().UTC(),
	}
	return sub, ev
}

func TestNotifyChange_DeliversSignedPayload(t *testing.T) {
	var gotBody []byte
	var gotSig, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Signature-256")
		gotType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	sub, ev := testEvent()
	n := testNotifier(srv.URL, testSecret)
	if err := n.NotifyChange(context.Background(), sub, ev); err != nil {
		t.Fatalf("NotifyChange: %v", err)
	}

	if gotType != "application/json" {
		t.Errorf("Content-Type: got %q", gotType)
	}
	if !strings.HasPrefix(gotSig, "sha256=") {
		t.Errorf("signature header: got %q", gotSig)
	}
	if !VerifySignature(gotBody, gotSig, testSecret) {
		t.Error("signature does not verify against body")
	}
	if VerifySignature(gotBody, gotSig, "wrong-secret-wrong-secret-wrong!") {
		t.Error("signature verified with the wrong secret")
	}

	var payload changePayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Event != "stack_change" || payload.Domain != "acme.example" {
		t.Errorf("payload: %+v", payload)
	}
	if payload.SubscriptionID != "sub_1" || payload.NewScanID != "scan_2" {
		t.Errorf("payload ids: %+v", payload)
	}
	if len(payload.Diff.Added) != 1 {
		t.Errorf("payload diff: %+v", payload.Diff)
	}
}

func TestNotifyChange_NoSecretSkipsSignature(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature-256")
	}))
	defer srv.Close()

	sub, ev := testEvent()
	if err := testNotifier(srv.URL, "").NotifyChange(context.Background(), sub, ev); err != nil {
		t.Fatal(err)
	}
	if gotSig != "" {
		t.Errorf("unexpected signature header %q", gotSig)
	}
}

func TestNotifyChange_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	sub, ev := testEvent()
	if err := testNotifier(srv.URL, "").NotifyChange(context.Background(), sub, ev); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestNewWebhook_Validation(t *testing.T) {
	if _, err := NewWebhook(Config{}, nil); err == nil {
		t.Error("missing url accepted")
	}
	if _, err := NewWebhook(Config{URL: "http://127.0.0.1/hook"}, nil); err == nil {
		t.Error("loopback url accepted")
	}
	if _, err := NewWebhook(Config{URL: "https://hooks.example.com/x", Secret: "short"}, nil); err == nil {
		t.Error("short secret accepted")
	}
	if _, err := NewWebhook(Config{URL: "https://hooks.example.com/x", Secret: testSecret}, nil); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
