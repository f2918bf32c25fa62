package domain

import "github.com/shopspring/decimal"

// FXMethod identifies which branch of the loss computation produced the
// figure. The order of preference is fixed: rate conversion, direct
// reporting-currency difference, shared-currency hint or difference,
// then the zero default.
type FXMethod string

const (
	FXConverted       FXMethod = "converted"
	FXReportingDirect FXMethod = "reporting_direct"
	FXSharedHint      FXMethod = "shared_currency_hint"
	FXSharedDiff      FXMethod = "shared_currency_diff"
	FXDefault         FXMethod = "default"
	FXError           FXMethod = "error"
)

// EligibilityAssessment is the eligibility evaluator's output. Eligible
// is false whenever CurrencyMismatch is true, regardless of reason code.
type EligibilityAssessment struct {
	CurrencyMismatch  bool             `json:"currency_mismatch"`
	FXLoss            decimal.Decimal  `json:"fx_loss"`
	FXMethod          FXMethod         `json:"fx_method"`
	OriginalReporting *decimal.Decimal `json:"original_reporting,omitempty"`
	ReturnedReporting *decimal.Decimal `json:"returned_reporting,omitempty"`
	ReasonLabel       string           `json:"reason_label"`
	ReasonEligible    bool             `json:"reason_eligible"`
	CrossErrors       []string         `json:"cross_errors,omitempty"`
	PriorSettlement   bool             `json:"prior_settlement"`
	NonBranch         bool             `json:"non_branch"`
	SanctionsOK       bool             `json:"sanctions_ok"`
	IdentityValidated bool             `json:"identity_validated"`
	LossWithinLimit   bool             `json:"loss_within_limit"`
	ReportingReturn   bool             `json:"reporting_return"`
	Eligible          bool             `json:"eligible"`
}

// FXGateResult records the outcome of the FX-loss gate.
type FXGateResult struct {
	Loss          decimal.Decimal `json:"loss"`
	Threshold     decimal.Decimal `json:"threshold"`
	Exceeded      bool            `json:"exceeded"`
	OverrideFound bool            `json:"override_found"`
	OverrideRef   string          `json:"override_ref,omitempty"`
	ManualReview  bool            `json:"manual_review"`
	Reason        string          `json:"reason,omitempty"`
}
