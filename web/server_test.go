package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/stackprobe/dbopen"
	"github.com/hazyhaar/stackprobe/jobq"
	"github.com/hazyhaar/stackprobe/pipeline"
	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/store"
)

type noopRenderer struct{}

func (noopRenderer) Render(ctx context.Context, url string) (*scan.RenderOutcome, error) {
	return &scan.RenderOutcome{}, nil
}

func (noopRenderer) Probe(ctx context.Context, url string) (*scan.ProbeOutcome, error) {
	return &scan.ProbeOutcome{}, nil
}

func testServer(t *testing.T, cfg Config) (*Server, *store.Store) {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := store.New(db)
	q := jobq.New(db, jobq.Options{})
	if err := q.EnsureTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	coord := pipeline.New(st, q, scan.NewScanner(scan.Config{}, nil), noopRenderer{}, nil)
	return NewServer(cfg, coord, st, nil), st
}

func sitePage(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><script src="https://js.stripe.com/v3/"></script></head></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, Config{})
	w := doJSON(t, s.Router(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id missing")
	}
}

func TestScanLifecycleOverHTTP(t *testing.T) {
	s, _ := testServer(t, Config{AllowPrivateTargets: true})
	h := s.Router()
	site := sitePage(t)

	w := doJSON(t, h, http.MethodPost, "/api/scans", `{"url":"`+site.URL+`","userId":"u1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create scan: got %d, body %s", w.Code, w.Body.String())
	}
	var rec scan.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" || rec.Payments == nil || rec.Payments.Value != "Stripe" {
		t.Fatalf("record: %+v", rec)
	}
	if rec.Phases.Render != scan.StatePending || rec.Phases.Probe != scan.StateLocked {
		t.Errorf("phases: %+v", rec.Phases)
	}

	w = doJSON(t, h, http.MethodGet, "/api/scans/"+rec.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get scan: got %d", w.Code)
	}

	// Probe is still gated behind render.
	w = doJSON(t, h, http.MethodPost, "/api/scans/"+rec.ID+"/probe", "")
	if w.Code != http.StatusConflict {
		t.Errorf("probe while locked: got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/scans?userId=u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list scans: got %d", w.Code)
	}
	var recs []scan.Record
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("got %d scans", len(recs))
	}
}

func TestCreateScan_Validation(t *testing.T) {
	s, _ := testServer(t, Config{})
	h := s.Router()

	w := doJSON(t, h, http.MethodPost, "/api/scans", `{"url":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty url: got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/api/scans", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body: got %d", w.Code)
	}
	// Private targets are rejected unless explicitly allowed.
	w = doJSON(t, h, http.MethodPost, "/api/scans", `{"url":"http://127.0.0.1:8080"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("loopback target: got %d", w.Code)
	}
}

func TestGetScan_Missing(t *testing.T) {
	s, _ := testServer(t, Config{})
	w := doJSON(t, s.Router(), http.MethodGet, "/api/scans/scan_missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("got %d", w.Code)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	s, _ := testServer(t, Config{AllowPrivateTargets: true})
	h := s.Router()

	w := doJSON(t, h, http.MethodPost, "/api/subscriptions",
		`{"url":"https://www.acme.example","userId":"u1","notify":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", w.Code, w.Body.String())
	}
	var sub store.Subscription
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil {
		t.Fatal(err)
	}
	if sub.Domain != "acme.example" {
		t.Errorf("www not stripped: %q", sub.Domain)
	}
	if !sub.Active || !sub.Notify {
		t.Errorf("flags: %+v", sub)
	}

	// Same user, same domain: rejected by the unique index.
	w = doJSON(t, h, http.MethodPost, "/api/subscriptions",
		`{"url":"https://acme.example","userId":"u1"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate: got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/subscriptions?userId=u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}
	var subs []store.Subscription
	json.Unmarshal(w.Body.Bytes(), &subs)
	if len(subs) != 1 {
		t.Errorf("got %d subscriptions", len(subs))
	}

	w = doJSON(t, h, http.MethodGet, "/api/subscriptions", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("list without userId: got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPatch, "/api/subscriptions/"+sub.ID, `{"active":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/subscriptions/"+sub.ID, "")
	var got store.Subscription
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Active {
		t.Error("subscription still active after pause")
	}

	w = doJSON(t, h, http.MethodDelete, "/api/subscriptions/"+sub.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/subscriptions/"+sub.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodDelete, "/api/subscriptions/"+sub.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("double delete: got %d", w.Code)
	}
}

func TestListChanges(t *testing.T) {
	s, st := testServer(t, Config{})
	h := s.Router()

	w := doJSON(t, h, http.MethodGet, "/api/changes", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing domain: got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/changes?domain=acme.example", "")
	if w.Code != http.StatusOK {
		t.Fatalf("empty history: got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty history body: %q", body)
	}

	ev := &store.ChangeEvent{
		ID: "chg_1", SubscriptionID: "sub_1", Domain: "acme.example",
		NewScanID: "scan_2", ChangeType: "stack_change",
		Summary:   "Added: payments: Stripe",
		Diff:      scan.ChangeDiff{Added: []string{"payments: Stripe"}},
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateChangeEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, h, http.MethodGet, "/api/changes?domain=acme.example", "")
	var evs []store.ChangeEvent
	if err := json.Unmarshal(w.Body.Bytes(), &evs); err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].Summary != "Added: payments: Stripe" {
		t.Errorf("events: %+v", evs)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first requests must pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request must be throttled")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients are unaffected")
	}
}

func TestRateLimitedRoute(t *testing.T) {
	s, _ := testServer(t, Config{RateLimitPerMinute: 1})
	h := s.Router()

	if w := doJSON(t, h, http.MethodGet, "/api/changes?domain=x.example", ""); w.Code != http.StatusOK {
		t.Fatalf("first request: got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/api/changes?domain=x.example", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got %d", w.Code)
	}
	// Health stays outside the limiter.
	if w := doJSON(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("health throttled: got %d", w.Code)
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	if got := extractIP(req); got != "10.1.2.3" {
		t.Errorf("remote addr: got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := extractIP(req); got != "203.0.113.7" {
		t.Errorf("forwarded: got %q", got)
	}
}
