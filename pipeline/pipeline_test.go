package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/stackprobe/dbopen"
	"github.com/hazyhaar/stackprobe/jobq"
	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/signature"
	"github.com/hazyhaar/stackprobe/store"
)

// stubRenderer returns canned outcomes without a browser.
type stubRenderer struct {
	renderOut *scan.RenderOutcome
	renderErr error
	probeOut  *scan.ProbeOutcome
	probeErr  error
	probeGate chan struct{}
}

func (s *stubRenderer) Render(ctx context.Context, url string) (*scan.RenderOutcome, error) {
	if s.renderErr != nil {
		return nil, s.renderErr
	}
	if s.renderOut != nil {
		return s.renderOut, nil
	}
	return &scan.RenderOutcome{}, nil
}

func (s *stubRenderer) Probe(ctx context.Context, url string) (*scan.ProbeOutcome, error) {
	if s.probeGate != nil {
		<-s.probeGate
	}
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	if s.probeOut != nil {
		return s.probeOut, nil
	}
	return &scan.ProbeOutcome{}, nil
}

func testCoordinator(t *testing.T, r Renderer) *Coordinator {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := store.New(db)
	q := jobq.New(db, jobq.Options{PollInterval: 5 * time.Millisecond, Visibility: time.Second})
	if err := q.EnsureTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(st, q, scan.NewScanner(scan.Config{}, nil), r, nil)
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><script src="https://js.stripe.com/v3/"></script></head></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStartScan_PersistsAndQueues(t *testing.T) {
	c := testCoordinator(t, &stubRenderer{})
	srv := pageServer(t)
	ctx := context.Background()

	rec, err := c.StartScan(ctx, srv.URL, "user-1")
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("scan id not assigned")
	}
	if rec.Payments == nil || rec.Payments.Value != "Stripe" {
		t.Errorf("Payments: got %+v", rec.Payments)
	}

	stored, err := c.GetScan(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if stored.Phases.Render != scan.StatePending || stored.Phases.Probe != scan.StateLocked {
		t.Errorf("Phases: got %+v", stored.Phases)
	}

	n, err := c.queue.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("render jobs queued: got %d, want 1", n)
	}
}

func TestGetScan_Missing(t *testing.T) {
	c := testCoordinator(t, &stubRenderer{})
	if _, err := c.GetScan(context.Background(), "nope"); err != ErrScanNotFound {
		t.Errorf("got %v, want ErrScanNotFound", err)
	}
}

func TestRenderJob_MergesAndUnlocksProbe(t *testing.T) {
	r := &stubRenderer{renderOut: &scan.RenderOutcome{
		Framework:          &scan.TechField{Value: "Next.js", Confidence: signature.High},
		Provider:           "OpenAI",
		ProviderConfidence: signature.High,
		Transport:          "sse",
		Gateway:            "Helicone",
		Evidence:           scan.Evidence{NetworkRequests: 12, WindowHints: []string{"__NEXT_DATA__"}},
	}}
	c := testCoordinator(t, r)
	srv := pageServer(t)
	ctx := context.Background()

	rec, err := c.StartScan(ctx, srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.renderScan(ctx, rec.ID, rec.URL); err != nil {
		t.Fatalf("renderScan: %v", err)
	}

	got, err := c.GetScan(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Phases.Render != scan.StateComplete {
		t.Errorf("render phase: got %v", got.Phases.Render)
	}
	if !got.Phases.ProbeUnlockable() {
		t.Error("probe must be unlockable after render")
	}
	if got.Framework == nil || got.Framework.Value != "Next.js" {
		t.Errorf("Framework: got %+v", got.Framework)
	}
	if got.AI.Provider != "OpenAI" || got.AI.Gateway != "Helicone" {
		t.Errorf("AI: got %+v", got.AI)
	}
	if got.Mode != scan.ModeRender {
		t.Errorf("Mode: got %v", got.Mode)
	}
	if got.Evidence.NetworkRequests != 12 {
		t.Errorf("Evidence: got %+v", got.Evidence)
	}
}

func TestRenderJob_FailureSettlesPhase(t *testing.T) {
	c := testCoordinator(t, &stubRenderer{renderErr: errors.New("chrome crashed")})
	srv := pageServer(t)
	ctx := context.Background()

	rec, err := c.StartScan(ctx, srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.renderScan(ctx, rec.ID, rec.URL); err != nil {
		t.Fatalf("render failure must ack, got %v", err)
	}

	got, _ := c.GetScan(ctx, rec.ID)
	if got.Phases.Render != scan.StateFailed {
		t.Errorf("render phase: got %v", got.Phases.Render)
	}
	// A failed render still opens the probe gate.
	if !got.Phases.ProbeUnlockable() {
		t.Error("probe must be unlockable after failed render")
	}
	// Passive results survive.
	if got.Payments == nil || got.Payments.Value != "Stripe" {
		t.Errorf("Payments lost: %+v", got.Payments)
	}
}

func TestRenderJob_RetriesInterruptedRender(t *testing.T) {
	r := &stubRenderer{renderOut: &scan.RenderOutcome{
		Framework: &scan.TechField{Value: "Remix", Confidence: signature.High},
	}}
	c := testCoordinator(t, r)
	srv := pageServer(t)
	ctx := context.Background()

	rec, err := c.StartScan(ctx, srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}

	// A worker that died mid-render leaves the phase persisted as running.
	if err := rec.Phases.Advance(scan.PhaseRender, scan.StateRunning); err != nil {
		t.Fatal(err)
	}
	phases := rec.Phases
	if err := c.store.UpdateScan(ctx, rec.ID, store.ScanUpdate{Phases: &phases}); err != nil {
		t.Fatal(err)
	}

	if err := c.renderScan(ctx, rec.ID, rec.URL); err != nil {
		t.Fatalf("redelivered render job: %v", err)
	}

	got, err := c.GetScan(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Phases.Render != scan.StateComplete {
		t.Errorf("render phase: got %v, want complete", got.Phases.Render)
	}
	if got.Framework == nil || got.Framework.Value != "Remix" {
		t.Errorf("Framework: got %+v", got.Framework)
	}
	if !got.Phases.ProbeUnlockable() {
		t.Error("probe must be unlockable after the retried render settles")
	}
}

func TestRenderJob_SettledPhaseAcks(t *testing.T) {
	c := testCoordinator(t, &stubRenderer{renderOut: &scan.RenderOutcome{
		Framework: &scan.TechField{Value: "Astro", Confidence: signature.High},
	}})
	srv := pageServer(t)
	ctx := context.Background()

	rec, err := c.StartScan(ctx, srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.renderScan(ctx, rec.ID, rec.URL); err != nil {
		t.Fatal(err)
	}
	// A second delivery after the phase settled is a no-op ack.
	if err := c.renderScan(ctx, rec.ID, rec.URL); err != nil {
		t.Fatalf("redelivery after completion: %v", err)
	}
}

func TestStartProbe_LockedBeforeRender(t *testing.T) {
	c := testCoordinator(t, &stubRenderer{})
	srv := pageServer(t)
	ctx := context.Background()

	rec, err := c.StartScan(ctx, srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.StartProbe(ctx, rec.ID); err != ErrProbeLocked {
		t.Errorf("got %v, want ErrProbeLocked", err)
	}
}

func TestStartProbe_RunsAndMerges(t *testing.T) {
	r := &stubRenderer{probeOut: &scan.ProbeOutcome{
		Provider:           "Anthropic",
		ProviderConfidence: signature.High,
		InferredModel:      "Anthropic - Claude 3.5 Sonnet",
		TTFT:               400 * time.Millisecond,
		TPS:                48,
		Evidence:           scan.Evidence{Interaction: &scan.Interaction{Submitted: true, Tokens: 120}},
	}}
	c := testCoordinator(t, r)
	srv := pageServer(t)
	ctx := context.Background()

	rec, err := c.StartScan(ctx, srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.renderScan(ctx, rec.ID, rec.URL); err != nil {
		t.Fatal(err)
	}
	if err := c.StartProbe(ctx, rec.ID); err != nil {
		t.Fatalf("StartProbe: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := c.GetScan(ctx, rec.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Phases.Probe == scan.StateComplete {
			if got.AI.InferredModel != "Anthropic - Claude 3.5 Sonnet" {
				t.Errorf("InferredModel: got %q", got.AI.InferredModel)
			}
			if got.AI.TTFTMillis != 400 || got.AI.TPS != 48 {
				t.Errorf("timing: got %+v", got.AI)
			}
			if got.Mode != scan.ModeProbe {
				t.Errorf("Mode: got %v", got.Mode)
			}
			if got.Evidence.Interaction == nil || got.Evidence.Interaction.Tokens != 120 {
				t.Errorf("Interaction: got %+v", got.Evidence.Interaction)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("probe never completed, phases %+v", got.Phases)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartProbe_DuplicateRejected(t *testing.T) {
	gate := make(chan struct{})
	c := testCoordinator(t, &stubRenderer{probeGate: gate})
	srv := pageServer(t)
	ctx := context.Background()

	rec, err := c.StartScan(ctx, srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.renderScan(ctx, rec.ID, rec.URL); err != nil {
		t.Fatal(err)
	}
	if err := c.StartProbe(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}

	if err := c.StartProbe(ctx, rec.ID); err != ErrProbeInFlight {
		t.Errorf("got %v, want ErrProbeInFlight", err)
	}
	close(gate)

	deadline := time.After(2 * time.Second)
	for {
		got, _ := c.GetScan(ctx, rec.ID)
		if got != nil && got.Phases.Probe.Settled() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("probe never settled")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartProbe_Missing(t *testing.T) {
	c := testCoordinator(t, &stubRenderer{})
	if err := c.StartProbe(context.Background(), "nope"); err != ErrScanNotFound {
		t.Errorf("got %v, want ErrScanNotFound", err)
	}
}

func TestRenderWorker_EndToEnd(t *testing.T) {
	r := &stubRenderer{renderOut: &scan.RenderOutcome{
		Framework: &scan.TechField{Value: "Nuxt", Confidence: signature.High},
	}}
	c := testCoordinator(t, r)
	srv := pageServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.RunRenderWorker(ctx)
	}()

	rec, err := c.StartScan(ctx, srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := c.GetScan(ctx, rec.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Phases.Render == scan.StateComplete {
			if got.Framework == nil || got.Framework.Value != "Nuxt" {
				t.Errorf("Framework: got %+v", got.Framework)
			}
			cancel()
			<-done
			return
		}
		select {
		case <-deadline:
			t.Fatalf("render worker never processed job, phases %+v", got.Phases)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
