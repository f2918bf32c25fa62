package domain

// DecisionTraceEntry records one refund-tree node evaluation. Entries
// are append-only and ordered by evaluation.
type DecisionTraceEntry struct {
	Node      string `json:"node"`
	Decision  bool   `json:"decision"`
	Rationale string `json:"rationale"`
	NextNode  string `json:"next_node,omitempty"`
	ActionTag string `json:"action_tag,omitempty"`
}

// AuditEvent is one append-only pipeline event attached to a case.
type AuditEvent struct {
	Timestamp string         `json:"ts"`
	Stage     string         `json:"stage"`
	Outcome   string         `json:"outcome"`
	Details   map[string]any `json:"details,omitempty"`
}
