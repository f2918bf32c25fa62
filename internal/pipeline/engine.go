package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/audit"
	"github.com/meridianbank/returns-engine/internal/checklist"
	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/eligibility"
	"github.com/meridianbank/returns-engine/internal/logger"
	"github.com/meridianbank/returns-engine/internal/notify"
)

// Node identifies one orchestration stage.
type Node string

const (
	NodePrep           Node = "prep"
	NodeEligibility    Node = "eligibility"
	NodeFXGate         Node = "fxGate"
	NodeChecklist      Node = "checklist"
	NodeManualReview   Node = "manualReview"
	NodeReconciliation Node = "reconciliation"
	NodeVerifier       Node = "verifier"
	NodeRefund         Node = "refund"
	NodeFinalize       Node = "finalize"

	nodeDone Node = "done"
)

// Evaluator assesses eligibility for a case.
type Evaluator interface {
	Evaluate(ctx context.Context, c *domain.CaseContext) *domain.EligibilityAssessment
}

// FXGate applies the loss threshold and override lookup.
type FXGate interface {
	Apply(c *domain.CaseContext) *domain.FXGateResult
}

// Matcher matches the return against the nostro statement.
type Matcher interface {
	FindNostroMatch(ref, uetr string, amount decimal.Decimal, currency string) domain.ReconciliationMatch
}

// Verifier produces the three-way routing decision.
type Verifier interface {
	Verify(c *domain.CaseContext) *domain.Verification
}

// Refunder walks the refund decision tree.
type Refunder interface {
	Run(c *domain.CaseContext) error
}

// CaseStore persists finished cases.
type CaseStore interface {
	Save(c *domain.CaseContext) error
}

// Engine sequences the pipeline stages for one case. Each stage writes
// only its own section of the case context; routing reads what prior
// stages wrote.
type Engine struct {
	evaluator Evaluator
	gate      FXGate
	policy    checklist.Policy
	matcher   Matcher
	verifier  Verifier
	refunder  Refunder
	cases     CaseStore
	audit     audit.Sink
	notices   *notify.Queue
	retryCap  int
}

func NewEngine(
	evaluator Evaluator,
	gate FXGate,
	policy checklist.Policy,
	matcher Matcher,
	verifier Verifier,
	refunder Refunder,
	cases CaseStore,
	sink audit.Sink,
	notices *notify.Queue,
	retryCap int,
) *Engine {
	if retryCap <= 0 {
		retryCap = 3
	}
	return &Engine{
		evaluator: evaluator,
		gate:      gate,
		policy:    policy,
		matcher:   matcher,
		verifier:  verifier,
		refunder:  refunder,
		cases:     cases,
		audit:     sink,
		notices:   notices,
		retryCap:  retryCap,
	}
}

// Run drives the case from prep to a terminal status and persists it.
func (e *Engine) Run(ctx context.Context, c *domain.CaseContext) error {
	log := logger.For("pipeline")
	node := NodePrep

	for node != nodeDone {
		log.Debug("entering stage", "case_id", c.ID, "node", string(node))

		switch node {
		case NodePrep:
			e.audit.AppendEvent(c, "prep", "started", map[string]any{
				"return_uetr":   c.Return.UETR,
				"original_uetr": c.Original.UETR,
				"amount":        c.Return.Amount.String(),
				"currency":      c.Return.Currency,
			})
			node = NodeEligibility

		case NodeEligibility:
			c.Assessment = e.evaluator.Evaluate(ctx, c)
			e.audit.AppendEvent(c, "eligibility", "assessed", map[string]any{
				"summary": eligibility.Describe(c.Assessment),
			})
			node = NodeFXGate

		case NodeFXGate:
			c.FXGate = e.gate.Apply(c)
			outcome := "within_limit"
			if c.FXGate.Exceeded {
				outcome = "exceeded"
			}
			e.audit.AppendEvent(c, "fx_gate", outcome, map[string]any{
				"loss":           c.FXGate.Loss.String(),
				"threshold":      c.FXGate.Threshold.String(),
				"override_found": c.FXGate.OverrideFound,
			})
			node = NodeChecklist

		case NodeChecklist:
			c.Checklist = checklist.Run(c, e.policy)
			e.audit.AppendEvent(c, "checklist", checklistOutcome(c), map[string]any{
				"gates":         len(c.Checklist.Gates),
				"review_reason": c.Checklist.ReviewReason,
			})
			// Manual review wins over reconciliation. The FX gate's
			// over-threshold-without-override verdict arrives here through
			// the case's monotonic flag.
			if c.ManualReviewRequired {
				node = NodeManualReview
			} else {
				node = NodeReconciliation
			}

		case NodeManualReview:
			e.notices.Enqueue(c.ID, notify.KindManualReview, "operations", c.ReviewReason)
			e.audit.AppendEvent(c, "manual_review", "queued", map[string]any{
				"reason": c.ReviewReason,
			})
			node = NodeFinalize

		case NodeReconciliation:
			m := e.matcher.FindNostroMatch(
				c.Original.EndToEndID, c.Return.UETR, c.Return.Amount, c.Return.Currency)
			c.Match = &m
			e.audit.AppendEvent(c, "reconciliation", string(m.MatchType), map[string]any{
				"found":            m.Found,
				"entry_ref":        m.MatchedEntryRef,
				"amount_confirmed": m.AmountConfirmed,
			})
			node = NodeVerifier

		case NodeVerifier:
			c.Verification = e.verifier.Verify(c)
			e.audit.AppendEvent(c, "verifier", string(c.Verification.Decision), map[string]any{
				"reason":     c.Verification.DecisionReason,
				"flow_diffs": len(c.Verification.FlowDiffs),
				"exceptions": len(c.Verification.Exceptions),
			})
			node = e.routeVerifier(c)

		case NodeRefund:
			if err := e.refunder.Run(c); err != nil {
				// The failed node rolled its transaction back; nothing
				// partial is posted.
				c.Status = domain.StatusHumanIntervention
				c.FailureReason = err.Error()
				e.audit.AppendEvent(c, "refund", "failed", map[string]any{
					"error": err.Error(),
				})
				log.Error("refund processing failed", "case_id", c.ID, "error", err)
			} else {
				c.Status = domain.StatusProcessed
			}
			node = NodeFinalize

		case NodeFinalize:
			e.finalize(c)
			node = nodeDone

		default:
			return fmt.Errorf("unknown pipeline node %q", node)
		}
	}

	if err := e.cases.Save(c); err != nil {
		return fmt.Errorf("persist case %s: %w", c.ID, err)
	}
	log.Info("case finished", "case_id", c.ID, "status", string(c.Status))
	return nil
}

// routeVerifier applies the verifier's three-way edge. The resend cycle
// is bounded: once the retry cap is exhausted the case is forced to
// human intervention instead of looping.
func (e *Engine) routeVerifier(c *domain.CaseContext) Node {
	switch c.Verification.Decision {
	case domain.DecisionApprove:
		return NodeRefund

	case domain.DecisionResend:
		if c.RetryCount >= e.retryCap {
			c.Status = domain.StatusHumanIntervention
			c.FailureReason = fmt.Sprintf(
				"resend retry cap (%d) exhausted without a statement match", e.retryCap)
			e.audit.AppendEvent(c, "verifier", "retry_exhausted", map[string]any{
				"retry_count": c.RetryCount,
				"retry_cap":   e.retryCap,
			})
			return NodeFinalize
		}
		c.RetryCount++
		e.audit.AppendEvent(c, "verifier", "resend", map[string]any{
			"retry_count": c.RetryCount,
		})
		return NodeEligibility

	default:
		c.Status = domain.StatusHumanIntervention
		c.FailureReason = c.Verification.DecisionReason
		return NodeFinalize
	}
}

// finalize maps any still-open case to its terminal status and appends
// the run report.
func (e *Engine) finalize(c *domain.CaseContext) {
	if c.Status == domain.StatusOpen {
		switch {
		case c.ManualReviewRequired && c.PendingUntil != nil:
			c.Status = domain.StatusPendingBusinessDays
		case c.ManualReviewRequired:
			c.Status = domain.StatusPendingManualReview
		default:
			c.Status = domain.StatusHumanIntervention
			c.FailureReason = "pipeline finalized without a terminal disposition"
		}
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, op := range c.Operations {
		switch op.Kind {
		case domain.OpDebit:
			debits = debits.Add(op.Amount)
		case domain.OpCredit:
			credits = credits.Add(op.Amount)
		}
	}

	e.audit.AppendEvent(c, "finalize", string(c.Status), map[string]any{
		"trace_entries": len(c.Trace),
		"operations":    len(c.Operations),
		"total_debits":  debits.String(),
		"total_credits": credits.String(),
		"retry_count":   c.RetryCount,
	})
}

func checklistOutcome(c *domain.CaseContext) string {
	if c.ManualReviewRequired {
		return "manual_review"
	}
	return "clear"
}
