package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// Notice is a queued client/operations communication. Rendering and
// delivery happen outside this system; the queue records what must be
// sent and to whom.
type Notice struct {
	ID        int64  `json:"id"`
	CaseID    string `json:"case_id"`
	Kind      string `json:"kind"`
	Recipient string `json:"recipient,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// NoticeRepo stores queued notices.
type NoticeRepo struct {
	db *sql.DB
}

func NewNoticeRepo(db *sql.DB) *NoticeRepo {
	return &NoticeRepo{db: db}
}

// Append queues one notice.
func (r *NoticeRepo) Append(caseID, kind, recipient, detail string) error {
	_, err := r.db.Exec(
		`INSERT INTO notices (case_id, kind, recipient, detail, created_at)
		 VALUES (?,?,?,?,?)`,
		caseID, kind, recipient, detail, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("append notice: %w", err)
	}
	return nil
}

// ListByCase returns a case's notices in queue order.
func (r *NoticeRepo) ListByCase(caseID string) ([]Notice, error) {
	rows, err := r.db.Query(
		`SELECT id, case_id, kind, recipient, detail, created_at
		 FROM notices WHERE case_id = ? ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var out []Notice
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.CaseID, &n.Kind, &n.Recipient, &n.Detail,
			&n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
