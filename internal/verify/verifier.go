package verify

import (
	"fmt"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// baselineFlag is one documented expected process-flow flag. The order
// is fixed so the diff report is deterministic.
type baselineFlag struct {
	key      string
	label    string
	expected bool
}

// expectedBaseline is the documented straight-through configuration: a
// clean case deviates from none of these.
var expectedBaseline = []baselineFlag{
	{"payments_team_rejection_email", "Payments team advised rejection", false},
	{"correct_payment_attached", "Correct payment attached", true},
	{"has_mt103_message", "MT103 present", false},
	{"has_202_message", "202 present", false},
	{"is_reporting_ccy_payment", "Reporting-currency payment", false},
	{"amendment_previously_sent", "Amendment previously sent", false},
	{"returned_due_to_bank_fca", "Return due to bank FCA", false},
	{"charges_prevent_return", "No funds due to charges", false},
	{"return_reason_clear", "Return reason clear", true},
	{"is_markets_payment", "Markets payment", false},
	{"remitter_account_closed", "Remitter account closed", false},
	{"returned_due_to_value_date", "Return due to value date", false},
	{"ofi_advised_iban_invalid", "OFI advised IBAN invalid", false},
	{"reason_internal_policy", "Reason: internal policy", false},
	{"reason_correspondent_issue", "Reason: correspondent issue", false},
	{"reason_wrong_currency", "Reason: wrong currency", false},
	{"client_amending_instructions", "Client provided amending instructions", false},
	{"loss_exceeds_threshold", "Loss exceeds threshold", false},
}

// Verifier aggregates the pipeline's signals into the three-way routing
// decision: approve, resend for re-investigation, or hand to a human.
type Verifier struct{}

func New() *Verifier { return &Verifier{} }

// Verify runs the named checks, the baseline diff (reporting only) and
// the routing decision.
func (v *Verifier) Verify(c *domain.CaseContext) *domain.Verification {
	a := c.Assessment
	match := c.Match

	matchFound := match != nil && match.Found

	// A loss over the threshold that the FX gate accepted (override
	// account found) counts as within limit here.
	fxOK := a != nil && a.LossWithinLimit
	if c.FXGate != nil && c.FXGate.OverrideFound {
		fxOK = true
	}

	checks := []domain.CheckResult{
		{Name: "sequence_ok", Passed: true},
		{Name: "cross_checks_ok", Passed: a != nil && len(a.CrossErrors) == 0},
		{Name: "identity_ok", Passed: a != nil && a.IdentityValidated},
		{Name: "channel_ok", Passed: a != nil && a.NonBranch},
		{Name: "sanctions_ok", Passed: a != nil && a.SanctionsOK},
		{Name: "fx_within_limit", Passed: fxOK},
		{Name: "match_found", Passed: matchFound},
	}

	reconciliationOK := true
	var exceptions []string
	for _, ch := range checks {
		if !ch.Passed {
			reconciliationOK = false
			exceptions = append(exceptions, fmt.Sprintf("check failed: %s", ch.Name))
		}
	}
	if a != nil {
		exceptions = append(exceptions, a.CrossErrors...)
	}

	res := &domain.Verification{
		Checks:           checks,
		ReconciliationOK: reconciliationOK,
		FlowDiffs:        diffBaseline(c.ProcessFlags),
		Exceptions:       exceptions,
	}

	switch {
	case reconciliationOK && matchFound:
		res.Decision = domain.DecisionApprove
		res.DecisionReason = "all verification checks passed"
	case !matchFound:
		res.Decision = domain.DecisionResend
		res.DecisionReason = "statement match not found, needs clarification"
	default:
		res.Decision = domain.DecisionHumanIntervention
		res.DecisionReason = "verification issues require human review"
	}
	return res
}

// diffBaseline itemizes deviations from the expected baseline. The diff
// is audit material; routing never reads it.
func diffBaseline(actual map[string]bool) []domain.FlowDiff {
	var diffs []domain.FlowDiff
	for _, f := range expectedBaseline {
		got := actual[f.key]
		if got != f.expected {
			diffs = append(diffs, domain.FlowDiff{
				Key:      f.key,
				Label:    f.label,
				Expected: f.expected,
				Actual:   got,
			})
		}
	}
	return diffs
}
