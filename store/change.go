package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/stackprobe/scan"
)

// ChangeEvent is a persisted diff between two scans of a tracked domain.
// Immutable once created except for the notification flag.
type ChangeEvent struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscriptionId"`
	Domain         string          `json:"domain"`
	OldScanID      string          `json:"oldScanId"`
	NewScanID      string          `json:"newScanId"`
	ChangeType     string          `json:"changeType"`
	Summary        string          `json:"summary"`
	Diff           scan.ChangeDiff `json:"diff"`
	Notified       bool            `json:"notified"`
	NotifiedAt     *time.Time      `json:"notifiedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// CreateChangeEvent inserts an event.
func (s *Store) CreateChangeEvent(ctx context.Context, ev *ChangeEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("store: change event without id")
	}
	diff, err := json.Marshal(ev.Diff)
	if err != nil {
		return fmt.Errorf("store: marshal diff: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO change_events (id, subscription_id, domain, old_scan_id, new_scan_id,
			change_type, summary, diff, notified, notified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SubscriptionID, ev.Domain, ev.OldScanID, ev.NewScanID,
		ev.ChangeType, ev.Summary, string(diff), boolInt(ev.Notified),
		unixOrNil(ev.NotifiedAt), ev.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: insert change event: %w", err)
	}
	return nil
}

const changeColumns = `id, subscription_id, domain, old_scan_id, new_scan_id,
	change_type, summary, diff, notified, notified_at, created_at`

// ListChangeEvents returns a domain's change history, newest first.
func (s *Store) ListChangeEvents(ctx context.Context, domain string, limit int) ([]*ChangeEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+changeColumns+` FROM change_events WHERE domain = ?
		 ORDER BY created_at DESC LIMIT ?`, domain, capLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list change events: %w", err)
	}
	return changeRows(rows)
}

// ListUnnotifiedChangeEvents returns events awaiting delivery, oldest first.
func (s *Store) ListUnnotifiedChangeEvents(ctx context.Context, limit int) ([]*ChangeEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+changeColumns+` FROM change_events WHERE notified = 0
		 ORDER BY created_at ASC LIMIT ?`, capLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list unnotified: %w", err)
	}
	return changeRows(rows)
}

// MarkChangeNotified flips the notification flag.
func (s *Store) MarkChangeNotified(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE change_events SET notified = 1, notified_at = ? WHERE id = ?`,
		at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("store: mark notified: %w", err)
	}
	return affected(res)
}

func changeRows(rows *sql.Rows) ([]*ChangeEvent, error) {
	defer rows.Close()
	var out []*ChangeEvent
	for rows.Next() {
		var ev ChangeEvent
		var diff string
		var notified int
		var notifiedAt sql.NullInt64
		var createdAt int64

		err := rows.Scan(&ev.ID, &ev.SubscriptionID, &ev.Domain, &ev.OldScanID, &ev.NewScanID,
			&ev.ChangeType, &ev.Summary, &diff, &notified, &notifiedAt, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("store: change row: %w", err)
		}

		if err := json.Unmarshal([]byte(diff), &ev.Diff); err != nil {
			return nil, fmt.Errorf("store: unmarshal diff: %w", err)
		}
		ev.Notified = notified != 0
		if notifiedAt.Valid {
			t := time.UnixMilli(notifiedAt.Int64).UTC()
			ev.NotifiedAt = &t
		}
		ev.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, &ev)
	}
	return out, rows.Err()
}
