package eligibility

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/fxrate"
	"github.com/meridianbank/returns-engine/internal/logger"
	"github.com/meridianbank/returns-engine/internal/reason"
)

// AccountSource is the slice of the account repository the evaluator
// needs for customer identity validation.
type AccountSource interface {
	Get(id string) (*domain.Account, error)
}

// SettlementStatusFn reports whether the original transfer has already
// been settled onward (a confirmed prior settlement blocks auto-refund).
type SettlementStatusFn func(uetr string) bool

// DefaultSettlementStatus is the stand-in used until the upstream
// message store is integrated: UETRs ending in an even digit are
// treated as already settled.
func DefaultSettlementStatus(uetr string) bool {
	if uetr == "" {
		return false
	}
	return strings.ContainsRune("02468", rune(uetr[len(uetr)-1]))
}

// Evaluator cross-validates the return against the original transfer,
// computes the FX figures and decides reason-code eligibility.
type Evaluator struct {
	rates     fxrate.Source
	reasons   *reason.Registry
	accounts  AccountSource
	settled   SettlementStatusFn
	reporting string
	threshold decimal.Decimal
}

func New(rates fxrate.Source, reasons *reason.Registry, accounts AccountSource,
	settled SettlementStatusFn, reporting string, threshold decimal.Decimal) *Evaluator {
	if settled == nil {
		settled = DefaultSettlementStatus
	}
	return &Evaluator{
		rates:     rates,
		reasons:   reasons,
		accounts:  accounts,
		settled:   settled,
		reporting: strings.ToUpper(reporting),
		threshold: threshold,
	}
}

// Evaluate produces the eligibility assessment for a case and records
// the observed process-flow flags the verifier later diffs against its
// baseline.
func (e *Evaluator) Evaluate(ctx context.Context, c *domain.CaseContext) *domain.EligibilityAssessment {
	ret := c.Return
	orig := c.Original

	a := &domain.EligibilityAssessment{
		NonBranch:   c.Overrides.NonBranch,
		SanctionsOK: c.Overrides.SanctionsPassed,
	}

	// Cross-record consistency. Mismatches are recorded, not fatal.
	if ret.UETR != "" && orig.UETR != "" && ret.UETR != orig.UETR {
		a.CrossErrors = append(a.CrossErrors, "UETR mismatch between return and original")
	}
	if ret.EndToEndID != "" && orig.EndToEndID != "" && ret.EndToEndID != orig.EndToEndID {
		a.CrossErrors = append(a.CrossErrors, "end-to-end id mismatch between return and original")
	}
	if ret.DebtorAccount != "" && orig.DebtorAccount != "" && ret.DebtorAccount != orig.DebtorAccount {
		a.CrossErrors = append(a.CrossErrors, "debtor account mismatch between return and original")
	}

	// Customer identity: the originally debited account must be known
	// and active.
	if e.accounts != nil {
		acct, err := e.accounts.Get(orig.DebtorAccount)
		if err != nil {
			logger.For("eligibility").Warn("customer lookup failed",
				"case_id", c.ID, "account", orig.DebtorAccount, "error", err)
		}
		a.IdentityValidated = acct.Active()
	}

	a.CurrencyMismatch = orig.Currency != "" && ret.Currency != "" &&
		orig.Currency != ret.Currency

	info := e.reasons.Lookup(ret.ReasonCode)
	a.ReasonLabel = info.Label
	a.ReasonEligible = info.AutoRefundEligible
	if a.CurrencyMismatch {
		// Wrong-currency returns are never auto-refundable, whatever
		// the reason code says.
		a.ReasonEligible = false
	}

	e.computeLoss(ctx, c, a)

	a.ReportingReturn = ret.Currency == e.reporting
	a.LossWithinLimit = a.FXLoss.LessThanOrEqual(e.threshold)
	a.PriorSettlement = e.settled(orig.UETR)

	a.Eligible = a.ReasonEligible &&
		(a.ReportingReturn || a.LossWithinLimit) &&
		!a.PriorSettlement &&
		a.NonBranch &&
		a.SanctionsOK &&
		a.IdentityValidated &&
		len(a.CrossErrors) == 0

	c.ProcessFlags = e.processFlags(c, a)
	return a
}

// computeLoss fills the FX loss following the fixed preference order:
// rate conversion of both legs, direct reporting-currency difference,
// shared-currency hint or difference, then the zero default.
func (e *Evaluator) computeLoss(ctx context.Context, c *domain.CaseContext, a *domain.EligibilityAssessment) {
	ret := c.Return
	orig := c.Original

	if e.rates == nil {
		a.FXLoss = decimal.Zero
		a.FXMethod = domain.FXError
		return
	}

	origRate, origOK := e.rates.Rate(ctx, orig.Currency)
	retRate, retOK := e.rates.Rate(ctx, ret.Currency)

	switch {
	case origOK && retOK:
		origRep := orig.Amount.Mul(decimal.NewFromFloat(origRate))
		retRep := ret.Amount.Mul(decimal.NewFromFloat(retRate))
		a.OriginalReporting = &origRep
		a.ReturnedReporting = &retRep
		a.FXLoss = nonNegative(origRep.Sub(retRep))
		a.FXMethod = domain.FXConverted

	case orig.Currency == ret.Currency && orig.Currency == e.reporting:
		a.FXLoss = nonNegative(orig.Amount.Sub(ret.Amount))
		a.FXMethod = domain.FXReportingDirect

	case orig.Currency == ret.Currency && orig.Currency != "":
		if c.Overrides.FXLossHint != nil {
			a.FXLoss = nonNegative(*c.Overrides.FXLossHint)
			a.FXMethod = domain.FXSharedHint
		} else {
			a.FXLoss = nonNegative(orig.Amount.Sub(ret.Amount))
			a.FXMethod = domain.FXSharedDiff
		}

	default:
		a.FXLoss = decimal.Zero
		a.FXMethod = domain.FXDefault
	}
}

// processFlags records the observed process-flow decisions. Most flags
// are fixed policy defaults at this stage; the data-driven ones come
// from the assessment.
func (e *Evaluator) processFlags(c *domain.CaseContext, a *domain.EligibilityAssessment) map[string]bool {
	return map[string]bool{
		"payments_team_rejection_email": false,
		"correct_payment_attached":      true,
		"has_mt103_message":             false,
		"has_202_message":               false,
		"is_reporting_ccy_payment":      c.Original.Currency == e.reporting,
		"amendment_previously_sent":     false,
		"returned_due_to_bank_fca":      false,
		"charges_prevent_return":        false,
		"return_reason_clear":           true,
		"is_markets_payment":            false,
		"remitter_account_closed":       false,
		"returned_due_to_value_date":    false,
		"ofi_advised_iban_invalid":      false,
		"reason_internal_policy":        false,
		"reason_correspondent_issue":    false,
		"reason_wrong_currency":         a.CurrencyMismatch,
		"client_amending_instructions":  false,
		"loss_exceeds_threshold":        a.FXLoss.GreaterThan(e.threshold),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Describe renders a short audit summary of the assessment.
func Describe(a *domain.EligibilityAssessment) string {
	return fmt.Sprintf("eligible=%t loss=%s method=%s reason=%q cross_errors=%d",
		a.Eligible, a.FXLoss.String(), a.FXMethod, a.ReasonLabel, len(a.CrossErrors))
}
