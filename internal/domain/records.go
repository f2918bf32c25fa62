package domain

import "github.com/shopspring/decimal"

// ReturnRecord is the structured view of a returned credit transfer
// (pacs.004). Amounts are in the returned currency.
type ReturnRecord struct {
	EndToEndID       string          `json:"end_to_end_id"`
	UETR             string          `json:"uetr"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	ReasonCode       string          `json:"reason_code"`
	ReasonInfo       string          `json:"reason_info,omitempty"`
	CreditorName     string          `json:"creditor_name,omitempty"`
	CreditorAccount  string          `json:"creditor_account,omitempty"`
	DebtorAccount    string          `json:"debtor_account,omitempty"`
	CreditorAgentBIC string          `json:"creditor_agent_bic,omitempty"`
}

// OriginalRecord is the structured view of the original credit transfer
// (pacs.008) that the return refers to.
type OriginalRecord struct {
	EndToEndID    string          `json:"end_to_end_id"`
	UETR          string          `json:"uetr"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	DebtorName    string          `json:"debtor_name,omitempty"`
	DebtorAccount string          `json:"debtor_account,omitempty"`
}

// Overrides carries the optional manual flags supplied with a case.
type Overrides struct {
	FXLossHint      *decimal.Decimal `json:"fx_loss_hint,omitempty"`
	NonBranch       bool             `json:"non_branch"`
	SanctionsPassed bool             `json:"sanctions_passed"`
}
