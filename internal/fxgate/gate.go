package fxgate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/logger"
)

// AccountSource is the slice of the account repository the gate needs:
// the customer's primary account and an FCA sharing a holder-name token.
type AccountSource interface {
	Get(id string) (*domain.Account, error)
	FindFCAByHolderToken(token string) (*domain.Account, error)
}

// Gate applies the FX-loss threshold. A loss over the threshold is
// accepted only when the customer holds a foreign-currency account under
// a matching name; otherwise the case pends for five business days.
type Gate struct {
	accounts  AccountSource
	threshold decimal.Decimal

	// now is swappable for tests.
	now func() time.Time
}

const pendingBusinessDays = 5

func New(accounts AccountSource, threshold decimal.Decimal) *Gate {
	return &Gate{accounts: accounts, threshold: threshold, now: time.Now}
}

// WithClock pins the gate's clock. Test use only.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Apply evaluates the gate against the case's assessed FX loss. When
// the loss is within the threshold the gate has no routing effect.
func (g *Gate) Apply(c *domain.CaseContext) *domain.FXGateResult {
	loss := decimal.Zero
	if c.Assessment != nil {
		loss = c.Assessment.FXLoss
	}

	res := &domain.FXGateResult{
		Loss:      loss,
		Threshold: g.threshold,
		Exceeded:  loss.GreaterThan(g.threshold),
	}
	if !res.Exceeded {
		return res
	}

	fca, err := g.findOverrideAccount(c)
	if err != nil {
		logger.For("fxgate").Warn("FCA lookup failed, defaulting to manual review",
			"case_id", c.ID, "error", err)
	}

	if fca != nil {
		res.OverrideFound = true
		res.OverrideRef = fca.ID
		res.Reason = fmt.Sprintf(
			"FX loss %s exceeds %s limit but FCA account %s found, proceeding",
			loss.String(), g.threshold.String(), fca.ID)
		return res
	}

	res.ManualReview = true
	res.Reason = fmt.Sprintf(
		"FX loss %s exceeds %s limit and no FCA account found, pending %d business days",
		loss.String(), g.threshold.String(), pendingBusinessDays)

	pending := AddBusinessDays(g.now(), pendingBusinessDays)
	c.PendingUntil = &pending
	c.RequireManualReview(res.Reason)
	return res
}

// findOverrideAccount looks for an active foreign-currency account whose
// holder name shares a leading token with the holder of the customer's
// originally debited account.
func (g *Gate) findOverrideAccount(c *domain.CaseContext) (*domain.Account, error) {
	if g.accounts == nil {
		return nil, nil
	}

	primary, err := g.accounts.Get(c.Original.DebtorAccount)
	if err != nil {
		return nil, fmt.Errorf("primary account: %w", err)
	}
	if primary == nil || primary.Holder == "" {
		return nil, nil
	}

	token := strings.Fields(primary.Holder)[0]
	fca, err := g.accounts.FindFCAByHolderToken(token)
	if err != nil {
		return nil, fmt.Errorf("fca lookup: %w", err)
	}
	return fca, nil
}

// AddBusinessDays advances from the given day by n business days,
// skipping Saturdays and Sundays. No holiday calendar applies.
func AddBusinessDays(from time.Time, n int) time.Time {
	d := from
	added := 0
	for added < n {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return d
}
