package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbank/returns-engine/internal/domain"
)

func testCaseRepo(t *testing.T) *CaseRepo {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCaseRepo(db)
}

func TestCaseSaveGetRoundTrip(t *testing.T) {
	repo := testCaseRepo(t)

	c := domain.NewCase("case-1",
		domain.ReturnRecord{EndToEndID: "E2E-1", UETR: "uetr-1",
			Amount: decimal.NewFromInt(5000), Currency: "EUR", ReasonCode: "AC04"},
		domain.OriginalRecord{EndToEndID: "E2E-1", UETR: "uetr-1",
			Amount: decimal.NewFromInt(5000), Currency: "EUR", DebtorAccount: "CLI-1"},
		domain.Overrides{NonBranch: true, SanctionsPassed: true})
	c.Status = domain.StatusProcessed
	c.AppendTrace(domain.DecisionTraceEntry{Node: "D1", Decision: true, NextNode: "D2"})

	require.NoError(t, repo.Save(c))

	got, err := repo.Get("case-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusProcessed, got.Status)
	assert.Equal(t, "AC04", got.Return.ReasonCode)
	require.Len(t, got.Trace, 1)
	assert.Equal(t, "D1", got.Trace[0].Node)
	assert.True(t, got.Return.Amount.Equal(decimal.NewFromInt(5000)))
}

func TestCaseGetUnknownReturnsNil(t *testing.T) {
	repo := testCaseRepo(t)

	got, err := repo.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCaseSaveIsUpsert(t *testing.T) {
	repo := testCaseRepo(t)

	c := domain.NewCase("case-1", domain.ReturnRecord{}, domain.OriginalRecord{},
		domain.Overrides{})
	require.NoError(t, repo.Save(c))

	c.Status = domain.StatusHumanIntervention
	c.RetryCount = 3
	pending := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	c.PendingUntil = &pending
	require.NoError(t, repo.Save(c))

	got, err := repo.Get("case-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHumanIntervention, got.Status)
	assert.Equal(t, 3, got.RetryCount)
}

func TestCaseListFiltersByStatus(t *testing.T) {
	repo := testCaseRepo(t)

	for _, tc := range []struct {
		id     string
		status domain.CaseStatus
	}{
		{"case-1", domain.StatusProcessed},
		{"case-2", domain.StatusPendingManualReview},
		{"case-3", domain.StatusProcessed},
	} {
		c := domain.NewCase(tc.id, domain.ReturnRecord{}, domain.OriginalRecord{},
			domain.Overrides{})
		c.Status = tc.status
		require.NoError(t, repo.Save(c))
	}

	processed, err := repo.List(string(domain.StatusProcessed), 10)
	require.NoError(t, err)
	assert.Len(t, processed, 2)

	all, err := repo.List("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
