package reconcile

import (
	"fmt"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// VostroSource resolves the vostro account held for a counterparty bank.
type VostroSource interface {
	FindVostroForBIC(bic, ccy string) (*domain.Account, error)
}

// CheckDebitAuthority classifies the counterparty bank's standing debit
// authority on its vostro account. "By Request" authority needs an
// approved camt.029 exchange before any debit, so it does not count as
// an existing authority.
func CheckDebitAuthority(accounts VostroSource, bic, ccy string) (domain.DebitAuthority, error) {
	acct, err := accounts.FindVostroForBIC(bic, ccy)
	if err != nil {
		return domain.DebitAuthority{}, fmt.Errorf("vostro lookup: %w", err)
	}
	if acct == nil {
		return domain.DebitAuthority{
			AuthorityType: "not-found",
			NeedsRequest:  true,
		}, nil
	}

	switch acct.Authority {
	case "Yes":
		return domain.DebitAuthority{
			Exists:        true,
			AccountID:     acct.ID,
			AuthorityType: "pre-approved",
		}, nil
	case "By Request":
		return domain.DebitAuthority{
			AccountID:     acct.ID,
			AuthorityType: "by-request",
			NeedsRequest:  true,
		}, nil
	default:
		return domain.DebitAuthority{
			AccountID:     acct.ID,
			AuthorityType: "not-found",
			NeedsRequest:  true,
		}, nil
	}
}
