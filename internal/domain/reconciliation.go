package domain

// MatchType classifies how closely a statement entry corresponds to a
// return.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
	MatchNone    MatchType = "none"
	MatchError   MatchType = "error"
)

// ReconciliationMatch is the statement matcher's result. For a partial
// match AmountConfirmed is false: the entry carries the right reference
// and UETR on a credit but the amount/currency could not be corroborated.
type ReconciliationMatch struct {
	Found           bool      `json:"found"`
	MatchType       MatchType `json:"match_type"`
	MatchedEntryRef string    `json:"matched_entry_ref,omitempty"`
	AmountConfirmed bool      `json:"amount_confirmed"`
	Detail          string    `json:"detail,omitempty"`
}

// StatementEntry is one line of a nostro or vostro account statement.
// Reference carries /REF/<ref>/ and /UETR/<uetr>/ tokens in free text.
type StatementEntry struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"` // nostro | vostro
	ValueDate string `json:"value_date"`
	Currency  string `json:"currency"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"` // CR | DR
	Reference string `json:"reference"`
}

// DebitAuthority is the standing-authority classification for a
// counterparty bank's vostro account.
type DebitAuthority struct {
	Exists        bool   `json:"exists"`
	AccountID     string `json:"account_id,omitempty"`
	AuthorityType string `json:"authority_type"` // pre-approved | by-request | not-found
	NeedsRequest  bool   `json:"needs_request"`
}
