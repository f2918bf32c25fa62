package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// CaseRepo persists case contexts. The full case is stored as a JSON
// document alongside the columns the API filters on.
type CaseRepo struct {
	db *sql.DB
}

func NewCaseRepo(db *sql.DB) *CaseRepo {
	return &CaseRepo{db: db}
}

// Save upserts the case.
func (r *CaseRepo) Save(c *domain.CaseContext) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal case: %w", err)
	}

	var pendingUntil any
	if c.PendingUntil != nil {
		pendingUntil = c.PendingUntil.Format("2006-01-02")
	}

	_, err = r.db.Exec(
		`INSERT INTO cases (id, status, review_reason, pending_until, retry_count, created_at, document)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status,
		   review_reason = excluded.review_reason,
		   pending_until = excluded.pending_until,
		   retry_count = excluded.retry_count,
		   document = excluded.document`,
		c.ID, string(c.Status), c.ReviewReason, pendingUntil, c.RetryCount,
		c.CreatedAt.Format(time.RFC3339), string(doc),
	)
	if err != nil {
		return fmt.Errorf("save case: %w", err)
	}
	return nil
}

// Get returns the stored case or nil when unknown.
func (r *CaseRepo) Get(id string) (*domain.CaseContext, error) {
	var doc string
	err := r.db.QueryRow(`SELECT document FROM cases WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}

	var c domain.CaseContext
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("unmarshal case %s: %w", id, err)
	}
	return &c, nil
}

// CaseSummary is the listing row returned by List.
type CaseSummary struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ReviewReason string `json:"review_reason,omitempty"`
	PendingUntil string `json:"pending_until,omitempty"`
	RetryCount   int    `json:"retry_count"`
	CreatedAt    string `json:"created_at"`
}

// List returns case summaries, newest first, optionally filtered by
// status.
func (r *CaseRepo) List(status string, limit int) ([]CaseSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, status, review_reason, COALESCE(pending_until, ''), retry_count, created_at
		 FROM cases`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []CaseSummary
	for rows.Next() {
		var s CaseSummary
		if err := rows.Scan(&s.ID, &s.Status, &s.ReviewReason, &s.PendingUntil,
			&s.RetryCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
