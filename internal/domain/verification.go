package domain

// VerifierDecision is the verifier's three-way routing outcome.
type VerifierDecision string

const (
	DecisionApprove           VerifierDecision = "approve"
	DecisionResend            VerifierDecision = "resend"
	DecisionHumanIntervention VerifierDecision = "humanIntervention"
)

// CheckResult is one named verifier check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// FlowDiff is a single mismatch between the expected process-flow
// baseline and the flags actually observed. Reporting only.
type FlowDiff struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Expected bool   `json:"expected"`
	Actual   bool   `json:"actual"`
}

// Verification aggregates the verifier's checks, baseline comparison and
// routing decision.
type Verification struct {
	Checks           []CheckResult    `json:"checks"`
	ReconciliationOK bool             `json:"reconciliation_ok"`
	FlowDiffs        []FlowDiff       `json:"flow_diffs,omitempty"`
	Exceptions       []string         `json:"exceptions,omitempty"`
	Decision         VerifierDecision `json:"decision"`
	DecisionReason   string           `json:"decision_reason"`
}
