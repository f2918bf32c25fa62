package domain

// GateResult is a single checklist gate outcome. Gates are evaluated in
// a fixed order and every gate is evaluated, tripped or not.
type GateResult struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Tripped bool   `json:"tripped"`
}

// ChecklistResult aggregates the ordered gate outcomes.
// ManualReviewRequired is the OR of all tripped flags (and any manual
// flag already raised upstream). ReviewReason holds the reason of the
// last gate, in order, that tripped.
type ChecklistResult struct {
	Gates                []GateResult `json:"gates"`
	ManualReviewRequired bool         `json:"manual_review_required"`
	ReviewReason         string       `json:"review_reason,omitempty"`
}
