// Package pipeline coordinates the passive/render/probe scan lifecycle:
// synchronous passive scan and persistence, the queued background render
// phase, and the explicitly triggered interaction probe.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/hazyhaar/stackprobe/idgen"
	"github.com/hazyhaar/stackprobe/jobq"
	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/store"
)

// Renderer runs the browser-backed phases. It is an interface so the
// lifecycle can be tested without Chrome.
type Renderer interface {
	Render(ctx context.Context, url string) (*scan.RenderOutcome, error)
	Probe(ctx context.Context, url string) (*scan.ProbeOutcome, error)
}

var (
	// ErrScanNotFound is returned for operations on unknown scan ids.
	ErrScanNotFound = errors.New("pipeline: scan not found")
	// ErrProbeLocked is returned when a probe is triggered before render
	// settles.
	ErrProbeLocked = errors.New("pipeline: probe locked until render finishes")
	// ErrProbeInFlight is returned when a probe is already running.
	ErrProbeInFlight = errors.New("pipeline: probe already running")
	// ErrProbeSettled is returned when a probe has already finished.
	ErrProbeSettled = errors.New("pipeline: probe already settled")
)

// Coordinator wires the scanner, store, render queue and renderer together.
type Coordinator struct {
	store    *store.Store
	queue    *jobq.Q
	scanner  *scan.Scanner
	renderer Renderer
	newID    idgen.Generator
	log      *slog.Logger

	// probing marks scan ids with an interaction probe in flight so a
	// duplicate trigger is rejected rather than queued.
	mu      sync.Mutex
	probing map[string]bool
}

// New builds a Coordinator. A nil logger discards output.
func New(st *store.Store, queue *jobq.Q, scanner *scan.Scanner, renderer Renderer, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		store:    st,
		queue:    queue,
		scanner:  scanner,
		renderer: renderer,
		newID:    idgen.Prefixed("scan_", idgen.UUIDv7()),
		log:      log,
		probing:  map[string]bool{},
	}
}

// StartScan runs the passive phase synchronously, persists the record with
// render queued and probe locked, and returns it. Store failure is the only
// hard error besides an empty URL.
func (c *Coordinator) StartScan(ctx context.Context, url, userID string) (*scan.Record, error) {
	rec, err := c.scanner.Scan(ctx, url, userID)
	if err != nil {
		return nil, err
	}
	rec.ID = c.newID()

	if err := c.store.CreateScan(ctx, rec); err != nil {
		return nil, err
	}
	if err := c.queue.Publish(ctx, rec.ID, rec.URL); err != nil {
		// The passive result is durable; the render upgrade is lost until a
		// rescan. Surface the degradation in the log, not to the caller.
		c.log.Error("pipeline: enqueue render failed", "scan_id", rec.ID, "error", err)
	}

	c.log.Info("pipeline: scan created",
		"scan_id", rec.ID, "domain", rec.Domain, "mode", rec.Mode)
	return rec, nil
}

// GetScan fetches a scan record. Returns ErrScanNotFound when absent.
func (c *Coordinator) GetScan(ctx context.Context, id string) (*scan.Record, error) {
	rec, err := c.store.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrScanNotFound
	}
	return rec, nil
}

// RunRenderWorker consumes the render queue until ctx is cancelled.
func (c *Coordinator) RunRenderWorker(ctx context.Context) {
	c.queue.Run(ctx, func(ctx context.Context, job *jobq.Job) error {
		return c.renderScan(ctx, job.ScanID, job.URL)
	})
}

// renderScan runs the render phase for one queued scan. A render failure
// settles the phase as failed and acks the job; only store errors nack.
func (c *Coordinator) renderScan(ctx context.Context, scanID, url string) error {
	rec, err := c.store.GetScan(ctx, scanID)
	if err != nil {
		return err
	}
	if rec == nil {
		c.log.Warn("pipeline: render job for missing scan", "scan_id", scanID)
		return nil
	}
	switch rec.Phases.Render {
	case scan.StatePending:
		if err := c.advancePhase(ctx, rec, scan.PhaseRender, scan.StateRunning); err != nil {
			return err
		}
	case scan.StateRunning:
		// A redelivered job with the phase still running means a worker died
		// mid-render; the visibility timeout has expired, so run it again.
		c.log.Warn("pipeline: retrying interrupted render", "scan_id", scanID)
	default:
		// Already settled, likely a redelivered job racing the ack.
		return nil
	}

	outcome, renderErr := c.renderer.Render(ctx, url)
	if renderErr != nil {
		c.log.Warn("pipeline: render failed",
			"scan_id", scanID, "url", url, "error", renderErr)
		return c.advancePhase(ctx, rec, scan.PhaseRender, scan.StateFailed)
	}

	rec.MergeRender(*outcome)
	if err := rec.Phases.Advance(scan.PhaseRender, scan.StateComplete); err != nil {
		return err
	}
	if err := c.store.UpdateScan(ctx, rec.ID, store.UpdateFromRecord(rec)); err != nil {
		return err
	}
	c.log.Info("pipeline: render merged", "scan_id", scanID,
		"ai_provider", rec.AI.Provider, "gateway", rec.AI.Gateway)
	return nil
}

// StartProbe triggers the interaction probe for a scan whose render phase
// has settled. The probe runs in the background; callers poll GetScan.
func (c *Coordinator) StartProbe(ctx context.Context, scanID string) error {
	rec, err := c.store.GetScan(ctx, scanID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrScanNotFound
	}

	c.mu.Lock()
	if c.probing[scanID] {
		c.mu.Unlock()
		return ErrProbeInFlight
	}
	switch rec.Phases.Probe {
	case scan.StateRunning:
		c.mu.Unlock()
		return ErrProbeInFlight
	case scan.StateLocked:
		if !rec.Phases.ProbeUnlockable() {
			c.mu.Unlock()
			return ErrProbeLocked
		}
		if err := rec.Phases.Advance(scan.PhaseProbe, scan.StatePending); err != nil {
			c.mu.Unlock()
			return err
		}
	case scan.StatePending:
		// Re-trigger of a probe that never started is fine.
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w (%s)", ErrProbeSettled, rec.Phases.Probe)
	}
	c.probing[scanID] = true
	c.mu.Unlock()

	if err := c.advancePhase(ctx, rec, scan.PhaseProbe, scan.StateRunning); err != nil {
		c.clearProbing(scanID)
		return err
	}

	go c.probeScan(context.WithoutCancel(ctx), rec)
	return nil
}

func (c *Coordinator) probeScan(ctx context.Context, rec *scan.Record) {
	defer c.clearProbing(rec.ID)

	outcome, err := c.renderer.Probe(ctx, rec.URL)
	if err != nil {
		c.log.Warn("pipeline: probe failed", "scan_id", rec.ID, "error", err)
		if err := c.advancePhase(ctx, rec, scan.PhaseProbe, scan.StateFailed); err != nil {
			c.log.Error("pipeline: probe phase update failed", "scan_id", rec.ID, "error", err)
		}
		return
	}

	rec.MergeProbe(*outcome)
	if err := rec.Phases.Advance(scan.PhaseProbe, scan.StateComplete); err != nil {
		c.log.Error("pipeline: probe phase update failed", "scan_id", rec.ID, "error", err)
		return
	}
	if err := c.store.UpdateScan(ctx, rec.ID, store.UpdateFromRecord(rec)); err != nil {
		c.log.Error("pipeline: probe persist failed", "scan_id", rec.ID, "error", err)
		return
	}
	c.log.Info("pipeline: probe merged", "scan_id", rec.ID,
		"ai_provider", rec.AI.Provider, "model", rec.AI.InferredModel,
		"ttft_ms", rec.AI.TTFTMillis, "tps", rec.AI.TPS)
}

func (c *Coordinator) clearProbing(scanID string) {
	c.mu.Lock()
	delete(c.probing, scanID)
	c.mu.Unlock()
}

// advancePhase moves a phase on the in-memory record and persists just the
// phase state.
func (c *Coordinator) advancePhase(ctx context.Context, rec *scan.Record, phase scan.Phase, to scan.PhaseState) error {
	if err := rec.Phases.Advance(phase, to); err != nil {
		return err
	}
	phases := rec.Phases
	return c.store.UpdateScan(ctx, rec.ID, store.ScanUpdate{Phases: &phases})
}
