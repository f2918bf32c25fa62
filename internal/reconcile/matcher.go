package reconcile

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// StatementSource lists statement entries in scan order.
type StatementSource interface {
	ListByKind(kind string) ([]domain.StatementEntry, error)
}

// Matcher matches a return against bank statement entries. Statement
// references carry free-text /REF/<ref>/ and /UETR/<uetr>/ tokens.
type Matcher struct {
	statements StatementSource
}

func NewMatcher(statements StatementSource) *Matcher {
	return &Matcher{statements: statements}
}

var (
	refPattern  = regexp.MustCompile(`/REF/([^/]+)`)
	uetrPattern = regexp.MustCompile(`/UETR/([^/]+)`)
)

func extractToken(p *regexp.Regexp, text string) string {
	m := p.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// FindNostroMatch scans the nostro statement for an entry matching the
// return. An exact match requires reference, UETR, amount, currency and
// credit direction to all line up; reference, UETR and credit direction
// alone give a partial match whose amount is flagged uncorroborated.
// The first entry in scan order wins.
func (m *Matcher) FindNostroMatch(ref, uetr string, amount decimal.Decimal, currency string) domain.ReconciliationMatch {
	entries, err := m.statements.ListByKind("nostro")
	if err != nil {
		// Repository failure degrades to no match with the error noted,
		// never a processing abort.
		return domain.ReconciliationMatch{
			Found:     false,
			MatchType: domain.MatchError,
			Detail:    fmt.Sprintf("statement lookup failed: %v", err),
		}
	}

	// Exact pass first: a later exact entry beats an earlier partial one.
	for _, e := range entries {
		if extractToken(refPattern, e.Reference) != ref ||
			extractToken(uetrPattern, e.Reference) != uetr ||
			e.Direction != "CR" {
			continue
		}
		entryAmount, amtErr := decimal.NewFromString(e.Amount)
		if amtErr == nil && entryAmount.Equal(amount) && e.Currency == currency {
			return domain.ReconciliationMatch{
				Found:           true,
				MatchType:       domain.MatchExact,
				MatchedEntryRef: e.ID,
				AmountConfirmed: true,
			}
		}
	}

	for _, e := range entries {
		if extractToken(refPattern, e.Reference) == ref &&
			extractToken(uetrPattern, e.Reference) == uetr &&
			e.Direction == "CR" {
			return domain.ReconciliationMatch{
				Found:           true,
				MatchType:       domain.MatchPartial,
				MatchedEntryRef: e.ID,
				AmountConfirmed: false,
				Detail:          "entry found but amount/currency not corroborated",
			}
		}
	}

	return domain.ReconciliationMatch{
		Found:     false,
		MatchType: domain.MatchNone,
		Detail:    fmt.Sprintf("no nostro entry for reference %s, UETR %s", ref, uetr),
	}
}
