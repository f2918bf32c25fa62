package checklist

import (
	"github.com/meridianbank/returns-engine/internal/domain"
)

// Policy holds the fixed defaults behind each checklist gate. Most
// gates carry a fixed operational default; they are named here so every
// branch can be exercised independently in tests and overridden per
// deployment.
type Policy struct {
	RejectionEmailReceived     bool
	CorrectPaymentAttached     bool
	HasMT103And202             bool
	ReportingEquivalentPayment bool
	AmendmentPreviouslySent    bool
	ReturnedDueToBankFCA       bool
	ChargesPreventReturn       bool
	ReturnReasonClear          bool
	MarketsPayment             bool
	RemitterAccountClosed      bool
	ReturnedDueToValueDate     bool
	OFIAdvisedIBANInvalid      bool
	ReasonInternalPolicy       bool
	ReasonCorrespondentIssue   bool
	ClientAmendingInstructions bool
}

// DefaultPolicy returns the production defaults: nothing trips except
// what the case data itself trips.
func DefaultPolicy() Policy {
	return Policy{
		CorrectPaymentAttached: true,
		ReturnReasonClear:      true,
	}
}

// gate is one ordered checklist entry. Trip decides from the policy and
// the case's assessment whether the gate trips; Reason is stored when it
// does.
type gate struct {
	name   string
	label  string
	reason string
	trip   func(p Policy, a *domain.EligibilityAssessment) bool
}

// gates is the fixed evaluation order. Order matters: the stored review
// reason belongs to the last gate that trips.
var gates = []gate{
	{
		name: "rejection_email", label: "Payments team advised rejection",
		reason: "Payments team rejection email received",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.RejectionEmailReceived },
	},
	{
		name: "correct_payment_attached", label: "Correct payment attached",
		reason: "Incorrect payment attached",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return !p.CorrectPaymentAttached },
	},
	{
		name: "mt103_202_present", label: "MT103 and 202 present",
		reason: "MT103 and 202 present",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.HasMT103And202 },
	},
	{
		name: "reporting_equivalent_payment", label: "Reporting-currency equivalent payment",
		reason: "Reporting-currency equivalent payment",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.ReportingEquivalentPayment },
	},
	{
		name: "amendment_previously_sent", label: "Amendment previously sent",
		reason: "Amendment previously sent",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.AmendmentPreviouslySent },
	},
	{
		name: "returned_due_to_bank_fca", label: "Return due to bank FCA",
		reason: "Returned due to bank FCA",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.ReturnedDueToBankFCA },
	},
	{
		name: "charges_prevent_return", label: "No funds due to charges",
		reason: "No funds due to charges",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.ChargesPreventReturn },
	},
	{
		name: "return_reason_unclear", label: "Return reason clear",
		reason: "Return reason unclear",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return !p.ReturnReasonClear },
	},
	{
		name: "markets_payment", label: "Markets payment",
		reason: "Markets involved",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.MarketsPayment },
	},
	{
		name: "remitter_account_closed", label: "Remitter account closed",
		reason: "Remitter account closed",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.RemitterAccountClosed },
	},
	{
		name: "returned_due_to_value_date", label: "Return due to value date",
		reason: "Returned due to value date",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.ReturnedDueToValueDate },
	},
	{
		name: "ofi_advised_iban_invalid", label: "OFI advised IBAN invalid",
		reason: "OFI advised IBAN invalid",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.OFIAdvisedIBANInvalid },
	},
	{
		name: "reason_internal_policy", label: "Reason: internal policy",
		reason: "Internal policy reason",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.ReasonInternalPolicy },
	},
	{
		name: "reason_correspondent_issue", label: "Reason: correspondent issue",
		reason: "Correspondent issue",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.ReasonCorrespondentIssue },
	},
	{
		name: "reason_wrong_currency", label: "Reason: wrong currency",
		reason: "Wrong currency",
		trip: func(_ Policy, a *domain.EligibilityAssessment) bool {
			return a != nil && a.CurrencyMismatch
		},
	},
	{
		name: "client_amending_instructions", label: "Client provided amending instructions",
		reason: "Client amending instructions",
		trip:   func(p Policy, _ *domain.EligibilityAssessment) bool { return p.ClientAmendingInstructions },
	},
}

// GateCount is the size of the fixed gate list.
func GateCount() int { return len(gates) }

// Run evaluates every gate in fixed order. Evaluation never stops at a
// tripped gate: the manual-review verdict is the OR over the whole set,
// and the review reason is overwritten by each tripped gate in turn, so
// the last tripped gate's reason is the one that sticks. An FX-gate
// reason raised upstream survives only when no gate trips.
func Run(c *domain.CaseContext, p Policy) *domain.ChecklistResult {
	res := &domain.ChecklistResult{
		ManualReviewRequired: c.ManualReviewRequired,
		ReviewReason:         c.ReviewReason,
	}

	for _, g := range gates {
		tripped := g.trip(p, c.Assessment)
		res.Gates = append(res.Gates, domain.GateResult{
			Name:    g.name,
			Label:   g.label,
			Tripped: tripped,
		})
		if tripped {
			res.ManualReviewRequired = true
			res.ReviewReason = g.reason
		}
	}

	if res.ManualReviewRequired {
		c.RequireManualReview(res.ReviewReason)
		c.SetReviewReason(res.ReviewReason)
	}
	return res
}
