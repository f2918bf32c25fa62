package audit

import (
	"time"

	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/logger"
	"github.com/meridianbank/returns-engine/internal/repository"
)

// Sink records pipeline events. Events are append-only: prior entries
// are never mutated.
type Sink interface {
	AppendEvent(c *domain.CaseContext, stage, outcome string, details map[string]any)
}

// Recorder appends to the persistent audit store and mirrors every
// event onto the case's local trail.
type Recorder struct {
	repo *repository.AuditRepo
}

func NewRecorder(repo *repository.AuditRepo) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) AppendEvent(c *domain.CaseContext, stage, outcome string, details map[string]any) {
	c.AppendAudit(domain.AuditEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Stage:     stage,
		Outcome:   outcome,
		Details:   details,
	})

	if r.repo == nil {
		return
	}
	if err := r.repo.Append(c.ID, stage, outcome, details); err != nil {
		// Audit persistence failure must not stop case processing.
		logger.For("audit").Error("failed to persist audit event",
			"case_id", c.ID, "stage", stage, "error", err)
	}
}
