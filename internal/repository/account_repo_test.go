package repository

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbank/returns-engine/internal/domain"
)

func testDB(t *testing.T) *AccountRepo {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAccountRepo(db)
}

func seedAccount(t *testing.T, repo *AccountRepo, id string, kind domain.AccountKind, ccy string, balance int64) {
	t.Helper()
	require.NoError(t, repo.Insert(&domain.Account{
		ID: id, Holder: "Holder " + id, Kind: kind, Currency: ccy,
		Balance: decimal.NewFromInt(balance), Status: "Active",
	}))
}

func TestPostOperationsMovesBalancesAtomically(t *testing.T) {
	repo := testDB(t)
	seedAccount(t, repo, "NOSTRO-EUR", domain.AccountNostro, "EUR", 10_000)
	seedAccount(t, repo, "CLI-1", domain.AccountClient, "AUD", 500)

	ops, err := repo.PostOperations("case-1", []OperationRequest{
		{Kind: domain.OpDebit, AccountID: "NOSTRO-EUR",
			Amount: decimal.NewFromInt(2000), Currency: "EUR",
			CorrelationRef: "uetr-1", ActionTag: "debit_nostro"},
		{Kind: domain.OpCredit, AccountID: "CLI-1",
			Amount: decimal.NewFromInt(2000), Currency: "EUR",
			CorrelationRef: "uetr-1", ActionTag: "credit_client_account"},
	})

	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.True(t, ops[0].BalanceBefore.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, ops[0].BalanceAfter.Equal(decimal.NewFromInt(8000)))
	assert.True(t, ops[1].BalanceAfter.Equal(decimal.NewFromInt(2500)))

	nostro, err := repo.Get("NOSTRO-EUR")
	require.NoError(t, err)
	assert.True(t, nostro.Balance.Equal(decimal.NewFromInt(8000)))
}

func TestPostOperationsUnknownAccountRollsBack(t *testing.T) {
	repo := testDB(t)
	seedAccount(t, repo, "NOSTRO-EUR", domain.AccountNostro, "EUR", 10_000)

	_, err := repo.PostOperations("case-1", []OperationRequest{
		{Kind: domain.OpDebit, AccountID: "NOSTRO-EUR",
			Amount: decimal.NewFromInt(2000), Currency: "EUR"},
		{Kind: domain.OpCredit, AccountID: "MISSING",
			Amount: decimal.NewFromInt(2000), Currency: "EUR"},
	})
	require.Error(t, err)

	// The first leg must not have been applied.
	nostro, err := repo.Get("NOSTRO-EUR")
	require.NoError(t, err)
	assert.True(t, nostro.Balance.Equal(decimal.NewFromInt(10_000)))

	has, err := repo.HasOperations("case-1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPostOperationsConcurrentLoseNothing(t *testing.T) {
	repo := testDB(t)
	seedAccount(t, repo, "CLI-1", domain.AccountClient, "AUD", 0)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = repo.PostOperations(
				// One case per worker; every credit must survive.
				"case-"+string(rune('a'+n)),
				[]OperationRequest{{
					Kind: domain.OpCredit, AccountID: "CLI-1",
					Amount: decimal.NewFromInt(10), Currency: "AUD",
				}},
			)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	acct, err := repo.Get("CLI-1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(workers*10)),
		"expected %d, got %s", workers*10, acct.Balance)
}

func TestOperationsForCaseRoundTrip(t *testing.T) {
	repo := testDB(t)
	seedAccount(t, repo, "CLI-1", domain.AccountClient, "AUD", 100)

	posted, err := repo.PostOperations("case-1", []OperationRequest{
		{Kind: domain.OpCredit, AccountID: "CLI-1",
			Amount: decimal.NewFromInt(50), Currency: "AUD",
			CorrelationRef: "uetr-1", ActionTag: "credit_client_account"},
	})
	require.NoError(t, err)

	got, err := repo.OperationsForCase("case-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, posted[0].ActionTag, got[0].ActionTag)
	assert.True(t, posted[0].BalanceAfter.Equal(got[0].BalanceAfter))
	assert.Equal(t, "case-1", got[0].CaseID)
}

func TestFindFCAByHolderToken(t *testing.T) {
	repo := testDB(t)
	require.NoError(t, repo.Insert(&domain.Account{
		ID: "FCA-1", Holder: "Harrison Pastoral Co", Kind: domain.AccountFCA,
		Currency: "EUR", Balance: decimal.Zero, Status: "Active",
	}))
	require.NoError(t, repo.Insert(&domain.Account{
		ID: "FCA-2", Holder: "Okafor Trading", Kind: domain.AccountFCA,
		Currency: "USD", Balance: decimal.Zero, Status: "Closed",
	}))

	found, err := repo.FindFCAByHolderToken("Harrison")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "FCA-1", found.ID)

	// Inactive accounts never match.
	missing, err := repo.FindFCAByHolderToken("Okafor")
	require.NoError(t, err)
	assert.Nil(t, missing)

	none, err := repo.FindFCAByHolderToken("")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFindVostroForBIC(t *testing.T) {
	repo := testDB(t)
	require.NoError(t, repo.Insert(&domain.Account{
		ID: "V-1", Holder: "Deutsche Bank AG (DEUTDEFF)", Kind: domain.AccountVostro,
		Currency: "AUD", Balance: decimal.Zero, Authority: "Yes", Status: "Active",
	}))

	found, err := repo.FindVostroForBIC("DEUTDEFF", "aud")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "V-1", found.ID)
	assert.Equal(t, "Yes", found.Authority)

	missing, err := repo.FindVostroForBIC("BARCGB22", "AUD")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
