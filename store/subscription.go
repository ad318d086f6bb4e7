package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Subscription tracks one domain for periodic rescan and change alerts.
type Subscription struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId,omitempty"`
	Domain        string     `json:"domain"`
	URL           string     `json:"url"`
	Notify        bool       `json:"notify"`
	Active        bool       `json:"active"`
	LastScannedAt *time.Time `json:"lastScannedAt,omitempty"`
	LastScanID    string     `json:"lastScanId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// CreateSubscription inserts a subscription. One row per (user, domain);
// a duplicate insert fails.
func (s *Store) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if sub.ID == "" {
		return fmt.Errorf("store: subscription without id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, domain, url, notify, active, last_scanned_at, last_scan_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.UserID, sub.Domain, sub.URL, boolInt(sub.Notify), boolInt(sub.Active),
		unixOrNil(sub.LastScannedAt), sub.LastScanID, sub.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: insert subscription: %w", err)
	}
	return nil
}

const subColumns = `id, user_id, domain, url, notify, active, last_scanned_at, last_scan_id, created_at`

// GetSubscription fetches one subscription. Returns (nil, nil) when absent.
func (s *Store) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE id = ?`, id)
	return subRow(row)
}

// ListSubscriptionsForUser returns a user's subscriptions, newest first.
func (s *Store) ListSubscriptionsForUser(ctx context.Context, userID string) ([]*Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE user_id = ?
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list subscriptions: %w", err)
	}
	return subRows(rows)
}

// ListDueSubscriptions returns active subscriptions whose domain has not
// been rescanned since cutoff, oldest-scanned first.
func (s *Store) ListDueSubscriptions(ctx context.Context, cutoff time.Time) ([]*Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+subColumns+` FROM subscriptions
		WHERE active = 1 AND (last_scanned_at IS NULL OR last_scanned_at < ?)
		ORDER BY last_scanned_at ASC NULLS FIRST`, cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store: list due subscriptions: %w", err)
	}
	return subRows(rows)
}

// TouchSubscription records that a rescan ran, regardless of outcome.
func (s *Store) TouchSubscription(ctx context.Context, id, scanID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET last_scanned_at = ?, last_scan_id = ? WHERE id = ?`,
		at.UnixMilli(), scanID, id)
	if err != nil {
		return fmt.Errorf("store: touch subscription: %w", err)
	}
	return affected(res)
}

// SetSubscriptionActive pauses or resumes a subscription.
func (s *Store) SetSubscriptionActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET active = ? WHERE id = ?`, boolInt(active), id)
	if err != nil {
		return fmt.Errorf("store: set subscription active: %w", err)
	}
	return affected(res)
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete subscription: %w", err)
	}
	return affected(res)
}

func subRow(row rowScanner) (*Subscription, error) {
	var sub Subscription
	var notify, active int
	var lastAt sql.NullInt64
	var createdAt int64

	err := row.Scan(&sub.ID, &sub.UserID, &sub.Domain, &sub.URL,
		&notify, &active, &lastAt, &sub.LastScanID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: subscription row: %w", err)
	}

	sub.Notify = notify != 0
	sub.Active = active != 0
	if lastAt.Valid {
		t := time.UnixMilli(lastAt.Int64).UTC()
		sub.LastScannedAt = &t
	}
	sub.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &sub, nil
}

func subRows(rows *sql.Rows) ([]*Subscription, error) {
	defer rows.Close()
	var out []*Subscription
	for rows.Next() {
		sub, err := subRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
