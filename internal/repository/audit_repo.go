package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// AuditRepo is the append-only audit event store. Events are never
// updated or deleted.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Append records one event.
func (r *AuditRepo) Append(caseID, stage, outcome string, details map[string]any) error {
	detailsJSON := "{}"
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		detailsJSON = string(b)
	}

	_, err := r.db.Exec(
		`INSERT INTO audit_events (case_id, stage, outcome, details, created_at)
		 VALUES (?,?,?,?,?)`,
		caseID, stage, outcome, detailsJSON, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByCase returns a case's events in append order.
func (r *AuditRepo) ListByCase(caseID string) ([]domain.AuditEvent, error) {
	rows, err := r.db.Query(
		`SELECT stage, outcome, details, created_at
		 FROM audit_events WHERE case_id = ? ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var detailsJSON string
		if err := rows.Scan(&e.Stage, &e.Outcome, &detailsJSON, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if err := json.Unmarshal([]byte(detailsJSON), &e.Details); err != nil {
			return nil, fmt.Errorf("unmarshal audit details: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
