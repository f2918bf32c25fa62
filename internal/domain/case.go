package domain

import "time"

// CaseStatus is the terminal (or in-flight) state of a return case.
type CaseStatus string

const (
	StatusOpen                CaseStatus = "open"
	StatusProcessed           CaseStatus = "processed"
	StatusPendingManualReview CaseStatus = "pendingManualReview"
	StatusPendingBusinessDays CaseStatus = "pendingBusinessDays"
	StatusHumanIntervention   CaseStatus = "humanIntervention"
	StatusFailed              CaseStatus = "failed"
)

// CaseContext is the record threaded through every pipeline stage. One
// instance exists per return/original pair; each stage reads prior
// sections and writes only its own. The manual-review flag is monotonic:
// use RequireManualReview, never clear it.
type CaseContext struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Return    ReturnRecord   `json:"return"`
	Original  OriginalRecord `json:"original"`
	Overrides Overrides      `json:"overrides"`

	Assessment   *EligibilityAssessment `json:"assessment,omitempty"`
	FXGate       *FXGateResult          `json:"fx_gate,omitempty"`
	Checklist    *ChecklistResult       `json:"checklist,omitempty"`
	Match        *ReconciliationMatch   `json:"match,omitempty"`
	Verification *Verification          `json:"verification,omitempty"`

	// ProcessFlags are the observed process-flow decisions compared by
	// the verifier against its expected baseline.
	ProcessFlags map[string]bool `json:"process_flags,omitempty"`

	Trace      []DecisionTraceEntry `json:"trace,omitempty"`
	Operations []AccountOperation   `json:"operations,omitempty"`
	Audit      []AuditEvent         `json:"audit,omitempty"`

	// ManualReviewRequired is monotonic: stages raise it through
	// RequireManualReview and nothing clears it.
	ManualReviewRequired bool       `json:"manual_review_required"`
	ReviewReason         string     `json:"review_reason,omitempty"`
	PendingUntil         *time.Time `json:"pending_until,omitempty"`

	RetryCount    int        `json:"retry_count"`
	Status        CaseStatus `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// NewCase builds an open case for a record pair.
func NewCase(id string, ret ReturnRecord, orig OriginalRecord, ov Overrides) *CaseContext {
	return &CaseContext{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Return:    ret,
		Original:  orig,
		Overrides: ov,
		Status:    StatusOpen,
	}
}

// RequireManualReview raises the monotonic manual-review flag and
// records the reason. An already-raised flag keeps its first reason
// unless a later stage overwrites it explicitly via SetReviewReason.
func (c *CaseContext) RequireManualReview(reason string) {
	c.ManualReviewRequired = true
	if c.ReviewReason == "" {
		c.ReviewReason = reason
	}
}

// SetReviewReason overwrites the stored review reason. The checklist
// uses this for its last-tripped-gate-wins semantics.
func (c *CaseContext) SetReviewReason(reason string) {
	c.ReviewReason = reason
}

// AppendTrace appends a refund decision trace entry.
func (c *CaseContext) AppendTrace(e DecisionTraceEntry) {
	c.Trace = append(c.Trace, e)
}

// AppendOperations appends ledger operations in posting order.
func (c *CaseContext) AppendOperations(ops ...AccountOperation) {
	c.Operations = append(c.Operations, ops...)
}

// AppendAudit appends an audit event to the case's local trail.
func (c *CaseContext) AppendAudit(e AuditEvent) {
	c.Audit = append(c.Audit, e)
}
