package reason

import "strings"

// Info describes a return-reason code.
type Info struct {
	Code               string `json:"code"`
	Label              string `json:"label"`
	Action             string `json:"action"`
	AutoRefundEligible bool   `json:"auto_refund_eligible"`
}

// Registry maps ISO return-reason codes to their handling. Tables are
// injected so tests and deployments can substitute their own.
type Registry struct {
	entries map[string]Info
}

// NewRegistry builds a registry from the given table.
func NewRegistry(entries map[string]Info) *Registry {
	m := make(map[string]Info, len(entries))
	for code, info := range entries {
		info.Code = strings.ToUpper(code)
		m[info.Code] = info
	}
	return &Registry{entries: m}
}

// Default returns the standard registry used in production.
func Default() *Registry {
	return NewRegistry(map[string]Info{
		"AC04": {Label: "Account Closed", Action: "alternate_account", AutoRefundEligible: true},
		"AC01": {Label: "Incorrect Account Number", Action: "alternate_account", AutoRefundEligible: true},
		"MS03": {Label: "Reason Not Specified", Action: "manual_review", AutoRefundEligible: false},
		"FCA":  {Label: "Bank FCA Account", Action: "fca_account", AutoRefundEligible: true},
		"CHRG": {Label: "Charges Applied - No Return", Action: "charges_no_return", AutoRefundEligible: false},
		"VALU": {Label: "Value Date Issue", Action: "value_date_issue", AutoRefundEligible: true},
		"POLY": {Label: "Internal Policy", Action: "internal_policy", AutoRefundEligible: false},
		"CORR": {Label: "Correspondent Issue", Action: "correspondent_issue", AutoRefundEligible: true},
		"CURR": {Label: "Wrong Currency", Action: "manual_review", AutoRefundEligible: false},
	})
}

// Lookup resolves a reason code. Unknown codes map to a manual-review
// entry that is not auto-refund eligible.
func (r *Registry) Lookup(code string) Info {
	if info, ok := r.entries[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return info
	}
	return Info{
		Code:   strings.ToUpper(strings.TrimSpace(code)),
		Label:  "Unknown",
		Action: "manual_review",
	}
}
