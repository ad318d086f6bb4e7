package jobq_test

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/stackprobe/dbopen"
	"github.com/hazyhaar/stackprobe/jobq"
)

func newQ(t *testing.T, db *sql.DB, opts jobq.Options) *jobq.Q {
	t.Helper()
	if db == nil {
		db = dbopen.OpenMemory(t)
	}
	q := jobq.New(db, opts)
	if err := q.EnsureTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	return q
}

func TestPublishAndClaim(t *testing.T) {
	q := newQ(t, nil, jobq.Options{Visibility: time.Second})
	ctx := context.Background()

	if err := q.Publish(ctx, "scan-1", "https://acme.example"); err != nil {
		t.Fatal(err)
	}

	job, err := q.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if job == nil {
		t.Fatal("expected a job")
	}
	if job.ScanID != "scan-1" || job.URL != "https://acme.example" {
		t.Fatalf("got %+v", job)
	}
	if job.Attempts != 1 {
		t.Fatalf("got attempts %d, want 1", job.Attempts)
	}

	// Claimed job is invisible.
	job2, err := q.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if job2 != nil {
		t.Fatalf("expected nil, got %+v", job2)
	}
}

func TestPublishKeyedByScanID(t *testing.T) {
	q := newQ(t, nil, jobq.Options{Visibility: time.Second})
	ctx := context.Background()

	if err := q.Publish(ctx, "scan-1", "https://acme.example"); err != nil {
		t.Fatal(err)
	}
	// Duplicate publish is a no-op, not an error.
	if err := q.Publish(ctx, "scan-1", "https://acme.example"); err != nil {
		t.Fatal(err)
	}

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("got %d jobs, want 1 per scan id", n)
	}
}

func TestAckAllowsRequeue(t *testing.T) {
	q := newQ(t, nil, jobq.Options{Visibility: time.Second})
	ctx := context.Background()

	q.Publish(ctx, "scan-1", "https://acme.example")
	job, _ := q.Claim(ctx)
	if err := q.Ack(ctx, job.ScanID); err != nil {
		t.Fatal(err)
	}

	if err := q.Publish(ctx, "scan-1", "https://acme.example"); err != nil {
		t.Fatal(err)
	}
	job, err := q.Claim(ctx)
	if err != nil || job == nil {
		t.Fatalf("requeue after ack: got %v, %v", job, err)
	}
	if job.Attempts != 1 {
		t.Fatalf("attempts reset expected, got %d", job.Attempts)
	}
}

func TestNackMakesVisible(t *testing.T) {
	q := newQ(t, nil, jobq.Options{Visibility: time.Hour})
	ctx := context.Background()

	q.Publish(ctx, "scan-1", "https://acme.example")
	job, _ := q.Claim(ctx)
	if err := q.Nack(ctx, job.ScanID); err != nil {
		t.Fatal(err)
	}

	job, err := q.Claim(ctx)
	if err != nil || job == nil {
		t.Fatalf("claim after nack: got %v, %v", job, err)
	}
	if job.Attempts != 2 {
		t.Fatalf("got attempts %d, want 2", job.Attempts)
	}
}

func TestVisibilityTimeoutRedelivers(t *testing.T) {
	q := newQ(t, nil, jobq.Options{Visibility: 50 * time.Millisecond})
	ctx := context.Background()

	q.Publish(ctx, "scan-1", "https://acme.example")
	if job, _ := q.Claim(ctx); job == nil {
		t.Fatal("first claim failed")
	}

	time.Sleep(80 * time.Millisecond)

	job, err := q.Claim(ctx)
	if err != nil || job == nil {
		t.Fatalf("expected redelivery after timeout, got %v, %v", job, err)
	}
}

func TestRunProcessesJobs(t *testing.T) {
	db := dbopen.OpenMemory(t)
	q := newQ(t, db, jobq.Options{
		Visibility:   time.Second,
		PollInterval: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q.Publish(ctx, "scan-1", "https://a.example")
	q.Publish(ctx, "scan-2", "https://b.example")

	var handled atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx, func(ctx context.Context, job *jobq.Job) error {
			handled.Add(1)
			return nil
		})
	}()

	deadline := time.After(2 * time.Second)
	for handled.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("handled %d jobs before deadline", handled.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("queue not drained, %d left", n)
	}
}

func TestRunDiscardsAfterMaxAttempts(t *testing.T) {
	q := newQ(t, nil, jobq.Options{
		Visibility:   time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		MaxAttempts:  2,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q.Publish(ctx, "scan-1", "https://acme.example")

	failure := errors.New("render failed")
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx, func(ctx context.Context, job *jobq.Job) error {
			return failure
		})
	}()
	<-done

	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("poisoned job not discarded, %d left", n)
	}
}
