// Package rescan periodically re-runs the passive scan for tracked domains,
// diffs the result against the previous scan, and records change events.
// Rescans are passive-only: the render phase is marked skipped and probe
// stays locked.
package rescan

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/hazyhaar/stackprobe/idgen"
	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/store"
)

// Notifier delivers a change event to a subscriber. Implementations live
// outside this package; delivery failure leaves the event unnotified so a
// later sweep can retry.
type Notifier interface {
	NotifyChange(ctx context.Context, sub *store.Subscription, ev *store.ChangeEvent) error
}

// Config tunes the rescan schedule.
type Config struct {
	// InitialDelay before the first cycle, so startup traffic settles first.
	// Default: 1m.
	InitialDelay time.Duration `yaml:"initial_delay"`
	// CycleInterval between scheduler passes. Default: 1h.
	CycleInterval time.Duration `yaml:"cycle_interval"`
	// Window is how stale a subscription must be before it is rescanned.
	// Default: 24h.
	Window time.Duration `yaml:"window"`
	// Pacing is the delay between successive subscription rescans, keeping
	// outbound request rate polite. Default: 5s.
	Pacing time.Duration `yaml:"pacing"`
}

func (c *Config) defaults() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Minute
	}
	if c.CycleInterval <= 0 {
		c.CycleInterval = time.Hour
	}
	if c.Window <= 0 {
		c.Window = 24 * time.Hour
	}
	if c.Pacing <= 0 {
		c.Pacing = 5 * time.Second
	}
}

// Worker runs the rescan loop.
type Worker struct {
	cfg      Config
	store    *store.Store
	scanner  *scan.Scanner
	notifier Notifier
	log      *slog.Logger

	newScanID   idgen.Generator
	newChangeID idgen.Generator
}

// New builds a Worker. notifier may be nil to disable delivery; a nil
// logger discards output.
func New(cfg Config, st *store.Store, scanner *scan.Scanner, notifier Notifier, log *slog.Logger) *Worker {
	cfg.defaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Worker{
		cfg:         cfg,
		store:       st,
		scanner:     scanner,
		notifier:    notifier,
		log:         log,
		newScanID:   idgen.Prefixed("scan_", idgen.UUIDv7()),
		newChangeID: idgen.Prefixed("chg_", idgen.UUIDv7()),
	}
}

// Run blocks until ctx is cancelled, executing one cycle after the initial
// delay and then one per interval.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("rescan: worker scheduled",
		"initial_delay", w.cfg.InitialDelay, "interval", w.cfg.CycleInterval,
		"window", w.cfg.Window)

	if !sleepCtx(ctx, w.cfg.InitialDelay) {
		return
	}
	w.Cycle(ctx)

	ticker := time.NewTicker(w.cfg.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("rescan: worker stopped")
			return
		case <-ticker.C:
			w.Cycle(ctx)
		}
	}
}

// Cycle rescans every due subscription once. Exported so an operator
// endpoint or test can force a pass without waiting for the ticker.
func (w *Worker) Cycle(ctx context.Context) {
	cutoff := time.Now().Add(-w.cfg.Window)
	due, err := w.store.ListDueSubscriptions(ctx, cutoff)
	if err != nil {
		w.log.Error("rescan: list due subscriptions failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	w.log.Info("rescan: cycle started", "due", len(due))

	for i, sub := range due {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && !sleepCtx(ctx, w.cfg.Pacing) {
			return
		}
		if err := w.rescanOne(ctx, sub); err != nil {
			w.log.Warn("rescan: subscription rescan failed",
				"subscription_id", sub.ID, "domain", sub.Domain, "error", err)
		}
	}
	w.log.Info("rescan: cycle finished", "due", len(due))
}

// rescanOne runs one passive rescan, persists the new record with render
// skipped, diffs against the prior scan for the domain, and records a
// change event when the stack moved. The subscription's last-scanned
// timestamp is updated whether or not anything changed.
func (w *Worker) rescanOne(ctx context.Context, sub *store.Subscription) error {
	prev, err := w.store.LatestScanByDomain(ctx, sub.Domain)
	if err != nil {
		return err
	}

	rec, err := w.scanner.Scan(ctx, sub.URL, sub.UserID)
	if err != nil {
		return err
	}
	rec.ID = w.newScanID()
	if err := rec.Phases.Advance(scan.PhaseRender, scan.StateSkipped); err != nil {
		return err
	}
	if err := w.store.CreateScan(ctx, rec); err != nil {
		return err
	}

	diff := DetectChanges(prev, rec)
	if !diff.Empty() {
		ev := &store.ChangeEvent{
			ID:             w.newChangeID(),
			SubscriptionID: sub.ID,
			Domain:         sub.Domain,
			OldScanID:      prev.ID,
			NewScanID:      rec.ID,
			ChangeType:     "stack_change",
			Summary:        Summarize(diff),
			Diff:           diff,
			CreatedAt:      time.Now().UTC(),
		}
		if err := w.store.CreateChangeEvent(ctx, ev); err != nil {
			return err
		}
		w.log.Info("rescan: stack change detected",
			"domain", sub.Domain, "summary", ev.Summary)

		if sub.Notify && w.notifier != nil {
			if err := w.notifier.NotifyChange(ctx, sub, ev); err != nil {
				w.log.Warn("rescan: notification failed",
					"domain", sub.Domain, "change_id", ev.ID, "error", err)
			} else if err := w.store.MarkChangeNotified(ctx, ev.ID, time.Now().UTC()); err != nil {
				w.log.Error("rescan: mark notified failed", "change_id", ev.ID, "error", err)
			}
		}
	}

	return w.store.TouchSubscription(ctx, sub.ID, rec.ID, time.Now().UTC())
}

// sleepCtx waits for d or until ctx is cancelled. Reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
