// Package jobq is a SQLite-backed queue for background scan phases with a
// visibility timeout.
//
// A published job is keyed by scan id, so re-publishing while a job is
// queued or in flight is a no-op: each scan has at most one background job
// pending. A claimed job is invisible for the visibility duration; if the
// worker crashes or exceeds it, the job reappears and another worker can
// claim it. Queued work survives process restarts because the rows live in
// the same database as the scan records.
//
// Schema (created by EnsureTable):
//
//	CREATE TABLE IF NOT EXISTS scan_jobs (
//	    scan_id     TEXT PRIMARY KEY,
//	    queue       TEXT NOT NULL DEFAULT '',
//	    url         TEXT NOT NULL,
//	    visible_at  INTEGER NOT NULL DEFAULT 0,  -- milliseconds since epoch
//	    created_at  INTEGER NOT NULL,
//	    attempts    INTEGER NOT NULL DEFAULT 0
//	);
package jobq

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Job is one queued background phase for a scan.
type Job struct {
	ScanID    string
	Queue     string
	URL       string
	VisibleAt time.Time
	CreatedAt time.Time
	Attempts  int
}

// Options configures queue behaviour.
type Options struct {
	// Queue is the logical queue name; "render" by default.
	Queue string `yaml:"queue"`
	// Visibility is how long a claimed job stays invisible. Default: 2m,
	// comfortably above one browser render.
	Visibility time.Duration `yaml:"visibility"`
	// PollInterval is the delay between claim attempts in Run. Default: 1s.
	PollInterval time.Duration `yaml:"poll_interval"`
	// MaxAttempts limits redeliveries before a job is discarded.
	// 0 means unlimited. Default: 3.
	MaxAttempts int `yaml:"max_attempts"`
	// Concurrency bounds in-flight handlers in Run. Default: 2.
	Concurrency int `yaml:"concurrency"`
	// Logger overrides the default slog logger.
	Logger *slog.Logger `yaml:"-"`
}

func (o *Options) defaults() {
	if o.Queue == "" {
		o.Queue = "render"
	}
	if o.Visibility <= 0 {
		o.Visibility = 2 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 3
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 2
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Q is the queue handle.
type Q struct {
	db   *sql.DB
	opts Options
}

// New creates a queue handle. Call EnsureTable once at startup.
func New(db *sql.DB, opts Options) *Q {
	opts.defaults()
	return &Q{db: db, opts: opts}
}

// EnsureTable creates the scan_jobs table and index if they don't exist.
func (q *Q) EnsureTable(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scan_jobs (
			scan_id     TEXT PRIMARY KEY,
			queue       TEXT NOT NULL DEFAULT '',
			url         TEXT NOT NULL,
			visible_at  INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_scan_jobs_visible ON scan_jobs (queue, visible_at);
	`)
	return err
}

// Publish enqueues a background phase for a scan. A job already queued or
// in flight for the same scan id is left alone.
func (q *Q) Publish(ctx context.Context, scanID, url string) error {
	now := time.Now().UnixMilli()
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO scan_jobs (scan_id, queue, url, visible_at, created_at) VALUES (?,?,?,?,?)`,
		scanID, q.opts.Queue, url, now, now,
	)
	return err
}

// Claim atomically picks the oldest visible job and hides it for the
// visibility duration. Returns nil, nil if nothing is visible.
func (q *Q) Claim(ctx context.Context) (*Job, error) {
	now := time.Now()
	hideUntil := now.Add(q.opts.Visibility).UnixMilli()

	row := q.db.QueryRowContext(ctx, `
		UPDATE scan_jobs
		SET visible_at = ?, attempts = attempts + 1
		WHERE scan_id = (
			SELECT scan_id FROM scan_jobs
			WHERE queue = ? AND visible_at <= ?
			ORDER BY visible_at ASC
			LIMIT 1
		)
		RETURNING scan_id, queue, url, visible_at, created_at, attempts`,
		hideUntil, q.opts.Queue, now.UnixMilli(),
	)

	var j Job
	var visAt, creAt int64
	err := row.Scan(&j.ScanID, &j.Queue, &j.URL, &visAt, &creAt, &j.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.VisibleAt = time.UnixMilli(visAt)
	j.CreatedAt = time.UnixMilli(creAt)
	return &j, nil
}

// Ack deletes a finished job, letting the scan id be queued again later.
func (q *Q) Ack(ctx context.Context, scanID string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM scan_jobs WHERE scan_id = ? AND queue = ?`, scanID, q.opts.Queue,
	)
	return err
}

// Nack makes a job immediately visible again.
func (q *Q) Nack(ctx context.Context, scanID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE scan_jobs SET visible_at = 0 WHERE scan_id = ? AND queue = ?`, scanID, q.opts.Queue,
	)
	return err
}

// Extend pushes the visibility timeout forward for a slow render.
func (q *Q) Extend(ctx context.Context, scanID string, extra time.Duration) error {
	hideUntil := time.Now().Add(extra).UnixMilli()
	_, err := q.db.ExecContext(ctx,
		`UPDATE scan_jobs SET visible_at = ? WHERE scan_id = ? AND queue = ?`,
		hideUntil, scanID, q.opts.Queue,
	)
	return err
}

// Len returns the total number of jobs (visible + hidden) in the queue.
func (q *Q) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scan_jobs WHERE queue = ?`, q.opts.Queue,
	).Scan(&n)
	return n, err
}

// Handler processes a claimed job. Return nil to ack, non-nil to nack.
type Handler func(ctx context.Context, job *Job) error

// Run polls for visible jobs and dispatches them to handler with bounded
// concurrency. It blocks until ctx is cancelled, draining in-flight
// handlers before returning.
func (q *Q) Run(ctx context.Context, handler Handler) {
	log := q.opts.Logger
	log.Info("jobq: worker started",
		"queue", q.opts.Queue, "visibility", q.opts.Visibility,
		"concurrency", q.opts.Concurrency)

	sem := make(chan struct{}, q.opts.Concurrency)
	var wg sync.WaitGroup

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			log.Info("jobq: worker stopped", "queue", q.opts.Queue)
			return
		case <-ticker.C:
			q.dispatch(ctx, handler, sem, &wg)
		}
	}
}

func (q *Q) dispatch(ctx context.Context, handler Handler, sem chan struct{}, wg *sync.WaitGroup) {
	log := q.opts.Logger
	for {
		job, err := q.Claim(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("jobq: claim failed", "error", err, "queue", q.opts.Queue)
			}
			return
		}
		if job == nil {
			return
		}

		if q.opts.MaxAttempts > 0 && job.Attempts > q.opts.MaxAttempts {
			log.Warn("jobq: job exceeded max attempts, discarding",
				"scan_id", job.ScanID, "attempts", job.Attempts)
			_ = q.Ack(ctx, job.ScanID)
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			_ = q.Nack(context.Background(), job.ScanID)
			return
		}

		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := handler(ctx, j); err != nil {
				log.Warn("jobq: handler failed, nacking",
					"scan_id", j.ScanID, "error", err, "queue", q.opts.Queue)
				_ = q.Nack(context.Background(), j.ScanID)
			} else {
				_ = q.Ack(context.Background(), j.ScanID)
			}
		}(job)
	}
}
