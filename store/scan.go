package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/signature"
)

// CreateScan inserts a new record. The caller assigns the ID.
func (s *Store) CreateScan(ctx context.Context, rec *scan.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("store: scan record without id")
	}

	ai, err := json.Marshal(rec.AI)
	if err != nil {
		return fmt.Errorf("store: marshal ai: %w", err)
	}
	phases, err := json.Marshal(rec.Phases)
	if err != nil {
		return fmt.Errorf("store: marshal phases: %w", err)
	}
	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("store: marshal evidence: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (id, url, domain, user_id, created_at,
			framework, hosting, payments, auth, analytics, support,
			ai, mode, phases, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.Domain, rec.UserID, rec.CreatedAt.UnixMilli(),
		techJSON(rec.Framework), techJSON(rec.Hosting), techJSON(rec.Payments),
		techJSON(rec.Auth), techJSON(rec.Analytics), techJSON(rec.Support),
		string(ai), string(rec.Mode), string(phases), string(evidence))
	if err != nil {
		return fmt.Errorf("store: insert scan: %w", err)
	}
	return nil
}

const scanColumns = `id, url, domain, user_id, created_at,
	framework, hosting, payments, auth, analytics, support,
	ai, mode, phases, evidence`

// GetScan fetches one record by id. Returns (nil, nil) when absent.
func (s *Store) GetScan(ctx context.Context, id string) (*scan.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	return scanRow(row)
}

// LatestScanByDomain fetches the most recent record for a domain. Returns
// (nil, nil) when the domain has never been scanned.
func (s *Store) LatestScanByDomain(ctx context.Context, domain string) (*scan.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE domain = ?
		 ORDER BY created_at DESC LIMIT 1`, domain)
	return scanRow(row)
}

// ListScansForUser returns a user's scans, newest first.
func (s *Store) ListScansForUser(ctx context.Context, userID string, limit int) ([]*scan.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`, userID, capLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list user scans: %w", err)
	}
	return scanRows(rows)
}

// ListRecentScans returns the newest scans across all users.
func (s *Store) ListRecentScans(ctx context.Context, limit int) ([]*scan.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scanColumns+` FROM scans ORDER BY created_at DESC LIMIT ?`,
		capLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list recent scans: %w", err)
	}
	return scanRows(rows)
}

// ScanUpdate is a partial update of a record's mutable fields. Nil sections
// are left untouched; a Tech entry present with a nil value clears that
// category.
type ScanUpdate struct {
	Tech     map[signature.Category]*scan.TechField
	AI       *scan.AIReport
	Mode     *scan.Mode
	Phases   *scan.Phases
	Evidence *scan.Evidence
}

var techColumns = map[signature.Category]string{
	signature.CategoryFramework: "framework",
	signature.CategoryHosting:   "hosting",
	signature.CategoryPayments:  "payments",
	signature.CategoryAuth:      "auth",
	signature.CategoryAnalytics: "analytics",
	signature.CategorySupport:   "support",
}

// UpdateScan applies a partial update. Returns ErrNotFound when no row has
// the id; writes are last-writer-wins.
func (s *Store) UpdateScan(ctx context.Context, id string, up ScanUpdate) error {
	var sets []string
	var args []any

	for cat, field := range up.Tech {
		col, ok := techColumns[cat]
		if !ok {
			return fmt.Errorf("store: no column for category %q", cat)
		}
		sets = append(sets, col+" = ?")
		args = append(args, techJSON(field))
	}
	if up.AI != nil {
		b, err := json.Marshal(up.AI)
		if err != nil {
			return fmt.Errorf("store: marshal ai: %w", err)
		}
		sets = append(sets, "ai = ?")
		args = append(args, string(b))
	}
	if up.Mode != nil {
		sets = append(sets, "mode = ?")
		args = append(args, string(*up.Mode))
	}
	if up.Phases != nil {
		b, err := json.Marshal(up.Phases)
		if err != nil {
			return fmt.Errorf("store: marshal phases: %w", err)
		}
		sets = append(sets, "phases = ?")
		args = append(args, string(b))
	}
	if up.Evidence != nil {
		b, err := json.Marshal(up.Evidence)
		if err != nil {
			return fmt.Errorf("store: marshal evidence: %w", err)
		}
		sets = append(sets, "evidence = ?")
		args = append(args, string(b))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("store: update scan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update scan: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFromRecord builds the full partial update that persists everything
// the render and probe phases mutate in place.
func UpdateFromRecord(rec *scan.Record) ScanUpdate {
	tech := make(map[signature.Category]*scan.TechField, len(techColumns))
	for cat := range techColumns {
		tech[cat] = rec.Field(cat)
	}
	mode := rec.Mode
	phases := rec.Phases
	ai := rec.AI
	evidence := rec.Evidence
	return ScanUpdate{
		Tech:     tech,
		AI:       &ai,
		Mode:     &mode,
		Phases:   &phases,
		Evidence: &evidence,
	}
}

func techJSON(f *scan.TechField) any {
	if f == nil {
		return nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return string(b)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*scan.Record, error) {
	var rec scan.Record
	var createdAt int64
	var fw, ho, pa, au, an, su sql.NullString
	var ai, phases, evidence string

	err := row.Scan(&rec.ID, &rec.URL, &rec.Domain, &rec.UserID, &createdAt,
		&fw, &ho, &pa, &au, &an, &su, &ai, &rec.Mode, &phases, &evidence)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan row: %w", err)
	}

	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.Framework = techField(fw)
	rec.Hosting = techField(ho)
	rec.Payments = techField(pa)
	rec.Auth = techField(au)
	rec.Analytics = techField(an)
	rec.Support = techField(su)

	if err := json.Unmarshal([]byte(ai), &rec.AI); err != nil {
		return nil, fmt.Errorf("store: unmarshal ai: %w", err)
	}
	if err := json.Unmarshal([]byte(phases), &rec.Phases); err != nil {
		return nil, fmt.Errorf("store: unmarshal phases: %w", err)
	}
	if err := json.Unmarshal([]byte(evidence), &rec.Evidence); err != nil {
		return nil, fmt.Errorf("store: unmarshal evidence: %w", err)
	}
	return &rec, nil
}

func scanRows(rows *sql.Rows) ([]*scan.Record, error) {
	defer rows.Close()
	var out []*scan.Record
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func techField(v sql.NullString) *scan.TechField {
	if !v.Valid || v.String == "" {
		return nil
	}
	var f scan.TechField
	if err := json.Unmarshal([]byte(v.String), &f); err != nil {
		return nil
	}
	return &f
}

func capLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
