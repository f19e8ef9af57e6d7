// Package history records every bulk price submission and its outcome.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/metalrate/internal/pricing"
)

// Entry is one recorded submission.
type Entry struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Collections []string  `json:"collections"`
	Requested   int       `json:"requested"`
	Updated     int       `json:"updated"`
	OK          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
}

type Log struct {
	db  *sql.DB
	now func() time.Time
}

func NewLog(db *sql.DB) *Log {
	return &Log{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Record stores a submission outcome and returns the stored entry.
func (l *Log) Record(ctx context.Context, collections []string, sub pricing.Submission, outcome pricing.Outcome, submitErr error) (Entry, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return Entry{}, fmt.Errorf("encode submission payload: %w", err)
	}

	entry := Entry{
		ID:          uuid.NewString(),
		CreatedAt:   l.now(),
		Collections: collections,
		Requested:   len(sub.Updates),
		Updated:     outcome.Updated,
		OK:          outcome.OK && submitErr == nil,
	}
	if submitErr != nil {
		entry.Error = submitErr.Error()
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO price_submissions (id, created_at, collections, requested, updated, ok, error, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.CreatedAt.Format(time.DateTime), strings.Join(collections, ", "),
		entry.Requested, entry.Updated, entry.OK, nullIfEmpty(entry.Error), string(payload))
	if err != nil {
		return Entry{}, fmt.Errorf("insert price submission: %w", err)
	}
	return entry, nil
}

// List returns submissions newest first. A non-empty query filters on
// collection titles and error text.
func (l *Log) List(ctx context.Context, query string) ([]Entry, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at, collections, requested, updated, ok, COALESCE(error, '')
		FROM price_submissions
		WHERE (? = '' OR collections LIKE ? OR COALESCE(error, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, rowid DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query price submissions: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var createdAt, collections string
		if err := rows.Scan(&e.ID, &createdAt, &collections, &e.Requested, &e.Updated, &e.OK, &e.Error); err != nil {
			return nil, fmt.Errorf("scan price submission: %w", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		e.Collections = splitCollections(collections)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price submissions: %w", err)
	}

	return entries, nil
}

// Payload returns the submission that was sent for id.
func (l *Log) Payload(ctx context.Context, id string) (pricing.Submission, error) {
	var raw string
	if err := l.db.QueryRowContext(ctx, `SELECT payload_json FROM price_submissions WHERE id = ?`, id).Scan(&raw); err != nil {
		return pricing.Submission{}, fmt.Errorf("query price submission %s: %w", id, err)
	}
	var sub pricing.Submission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return pricing.Submission{}, fmt.Errorf("decode price submission %s: %w", id, err)
	}
	return sub, nil
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func splitCollections(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ", ") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
