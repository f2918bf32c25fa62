package domain

import "github.com/shopspring/decimal"

// AccountKind distinguishes the ledger accounts a refund can touch.
type AccountKind string

const (
	AccountNostro           AccountKind = "nostro"
	AccountVostro           AccountKind = "vostro"
	AccountFCA              AccountKind = "fca"
	AccountClient           AccountKind = "client"
	AccountSuspense         AccountKind = "suspense"
	AccountBranchSettlement AccountKind = "branch_settlement"
)

// Account is a ledger account row. Holder is the account holder name;
// Email is only populated for customer accounts. Authority applies to
// vostro accounts ("Yes", "By Request", or empty).
type Account struct {
	ID        string          `json:"id"`
	Holder    string          `json:"holder"`
	Kind      AccountKind     `json:"kind"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Authority string          `json:"authority,omitempty"`
	Status    string          `json:"status"`
	Email     string          `json:"email,omitempty"`
}

// Active reports whether the account can be posted to.
func (a *Account) Active() bool {
	return a != nil && a.Status == "Active"
}

// OperationKind is the direction of a ledger posting.
type OperationKind string

const (
	OpDebit  OperationKind = "debit"
	OpCredit OperationKind = "credit"
)

// AccountOperation is one ledger posting performed by the refund engine,
// recorded with the balances observed immediately before and after.
type AccountOperation struct {
	Kind           OperationKind   `json:"kind"`
	AccountID      string          `json:"account_id"`
	AccountName    string          `json:"account_name"`
	AccountKind    AccountKind     `json:"account_kind"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	BalanceBefore  decimal.Decimal `json:"balance_before"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	CorrelationRef string          `json:"correlation_ref"`
	CaseID         string          `json:"case_id"`
	ActionTag      string          `json:"action_tag"`
}
