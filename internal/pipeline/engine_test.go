package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbank/returns-engine/internal/audit"
	"github.com/meridianbank/returns-engine/internal/checklist"
	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/eligibility"
	"github.com/meridianbank/returns-engine/internal/fxgate"
	"github.com/meridianbank/returns-engine/internal/fxrate"
	"github.com/meridianbank/returns-engine/internal/notify"
	"github.com/meridianbank/returns-engine/internal/reason"
	"github.com/meridianbank/returns-engine/internal/verify"
)

type acctSource map[string]*domain.Account

func (s acctSource) Get(id string) (*domain.Account, error) { return s[id], nil }
func (s acctSource) FindFCAByHolderToken(token string) (*domain.Account, error) {
	for _, a := range s {
		if a.Kind == domain.AccountFCA && a.Status == "Active" {
			return a, nil
		}
	}
	return nil, nil
}

type stubMatcher struct {
	match domain.ReconciliationMatch
}

func (m *stubMatcher) FindNostroMatch(string, string, decimal.Decimal, string) domain.ReconciliationMatch {
	return m.match
}

type stubRefunder struct {
	calls int
	err   error
}

func (r *stubRefunder) Run(c *domain.CaseContext) error {
	r.calls++
	return r.err
}

type memStore struct {
	saved []*domain.CaseContext
}

func (s *memStore) Save(c *domain.CaseContext) error {
	s.saved = append(s.saved, c)
	return nil
}

type fixture struct {
	engine   *Engine
	refunder *stubRefunder
	store    *memStore
}

func newFixture(accounts acctSource, match domain.ReconciliationMatch, refundErr error) *fixture {
	threshold := decimal.NewFromInt(300)
	rates := fxrate.NewStatic("AUD", map[string]float64{"EUR": 2.0})
	evaluator := eligibility.New(rates, reason.Default(), accounts,
		func(string) bool { return false }, "AUD", threshold)
	gate := fxgate.New(accounts, threshold)
	refunder := &stubRefunder{err: refundErr}
	store := &memStore{}

	engine := NewEngine(evaluator, gate, checklist.DefaultPolicy(),
		&stubMatcher{match: match}, verify.New(), refunder, store,
		audit.NewRecorder(nil), notify.NewQueue(nil), 3)

	return &fixture{engine: engine, refunder: refunder, store: store}
}

func activeClient() acctSource {
	return acctSource{
		"CLI-1": {ID: "CLI-1", Holder: "Harrison Pastoral Co",
			Kind: domain.AccountClient, Currency: "AUD", Status: "Active"},
	}
}

func pipelineCase(ccy string, origAmount, retAmount int64) *domain.CaseContext {
	return domain.NewCase("case-1",
		domain.ReturnRecord{
			EndToEndID: "E2E-1", UETR: "uetr-1",
			Amount: decimal.NewFromInt(retAmount), Currency: ccy,
			ReasonCode: "AC04", CreditorAgentBIC: "DEUTDEFF",
			DebtorAccount: "CLI-1",
		},
		domain.OriginalRecord{
			EndToEndID: "E2E-1", UETR: "uetr-1",
			Amount: decimal.NewFromInt(origAmount), Currency: ccy,
			DebtorAccount: "CLI-1",
		},
		domain.Overrides{NonBranch: true, SanctionsPassed: true})
}

func exactMatch() domain.ReconciliationMatch {
	return domain.ReconciliationMatch{Found: true, MatchType: domain.MatchExact,
		MatchedEntryRef: "S1", AmountConfirmed: true}
}

func TestRunStraightThroughProcessed(t *testing.T) {
	f := newFixture(activeClient(), exactMatch(), nil)
	c := pipelineCase("AUD", 5000, 5000)

	require.NoError(t, f.engine.Run(context.Background(), c))

	assert.Equal(t, domain.StatusProcessed, c.Status)
	assert.Equal(t, 1, f.refunder.calls)
	require.Len(t, f.store.saved, 1)
	assert.NotNil(t, c.Assessment)
	assert.NotNil(t, c.FXGate)
	assert.NotNil(t, c.Checklist)
	assert.NotNil(t, c.Match)
	assert.NotNil(t, c.Verification)
}

func TestRunManualReviewBypassesRefund(t *testing.T) {
	// A wrong-currency return trips the checklist: manual review wins and
	// the refund engine never runs.
	f := newFixture(activeClient(), exactMatch(), nil)
	c := pipelineCase("AUD", 5000, 5000)
	c.Return.Currency = "EUR"

	require.NoError(t, f.engine.Run(context.Background(), c))

	assert.Equal(t, domain.StatusPendingManualReview, c.Status)
	assert.Equal(t, 0, f.refunder.calls)
	assert.Equal(t, "Wrong currency", c.ReviewReason)
	assert.Nil(t, c.Match, "reconciliation never ran")
}

func TestRunFXLossOverThresholdPendsBusinessDays(t *testing.T) {
	// EUR 1000 against EUR 800 at rate 2.0: loss 400 over the 300 limit,
	// and no foreign-currency account to absorb it.
	f := newFixture(activeClient(), exactMatch(), nil)
	c := pipelineCase("EUR", 1000, 800)

	require.NoError(t, f.engine.Run(context.Background(), c))

	assert.Equal(t, domain.StatusPendingBusinessDays, c.Status)
	assert.NotNil(t, c.PendingUntil)
	assert.Equal(t, 0, f.refunder.calls)
}

func TestRunFXLossOverThresholdWithFCAProceeds(t *testing.T) {
	accounts := activeClient()
	accounts["FCA-1"] = &domain.Account{ID: "FCA-1", Holder: "Harrison Pastoral Co",
		Kind: domain.AccountFCA, Currency: "EUR", Status: "Active"}
	f := newFixture(accounts, exactMatch(), nil)
	c := pipelineCase("EUR", 1000, 800)

	require.NoError(t, f.engine.Run(context.Background(), c))

	assert.Equal(t, domain.StatusProcessed, c.Status)
	assert.True(t, c.FXGate.OverrideFound)
	assert.Equal(t, 1, f.refunder.calls)
}

func TestRunRetryCapForcesHumanIntervention(t *testing.T) {
	noMatch := domain.ReconciliationMatch{Found: false, MatchType: domain.MatchNone}
	f := newFixture(activeClient(), noMatch, nil)
	c := pipelineCase("AUD", 5000, 5000)

	require.NoError(t, f.engine.Run(context.Background(), c))

	assert.Equal(t, domain.StatusHumanIntervention, c.Status)
	assert.Equal(t, 3, c.RetryCount)
	assert.Contains(t, c.FailureReason, "retry cap")
	assert.Equal(t, 0, f.refunder.calls)
}

func TestRunVerifierFailureRoutesToHumanIntervention(t *testing.T) {
	f := newFixture(activeClient(), exactMatch(), nil)
	c := pipelineCase("AUD", 5000, 5000)
	c.Overrides.SanctionsPassed = false

	require.NoError(t, f.engine.Run(context.Background(), c))

	assert.Equal(t, domain.StatusHumanIntervention, c.Status)
	assert.Equal(t, 0, f.refunder.calls)
}

func TestRunRefundFailureRoutesToHumanIntervention(t *testing.T) {
	f := newFixture(activeClient(), exactMatch(), errors.New("no nostro account for currency EUR"))
	c := pipelineCase("AUD", 5000, 5000)

	require.NoError(t, f.engine.Run(context.Background(), c))

	assert.Equal(t, domain.StatusHumanIntervention, c.Status)
	assert.Contains(t, c.FailureReason, "no nostro account")
}

func TestRunAppendsRunReport(t *testing.T) {
	f := newFixture(activeClient(), exactMatch(), nil)
	c := pipelineCase("AUD", 5000, 5000)

	require.NoError(t, f.engine.Run(context.Background(), c))

	require.NotEmpty(t, c.Audit)
	last := c.Audit[len(c.Audit)-1]
	assert.Equal(t, "finalize", last.Stage)
	assert.Equal(t, string(domain.StatusProcessed), last.Outcome)
	assert.Contains(t, last.Details, "total_debits")
	assert.Contains(t, last.Details, "total_credits")
}
