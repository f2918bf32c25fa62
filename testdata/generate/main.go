package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// Regenerates accounts.json and statements.json with a synthetic but
// internally consistent ledger: one nostro per foreign currency,
// correspondent vostros with mixed debit authorities, client accounts
// with and without email, matching foreign-currency accounts for some
// holders, and a nostro statement whose references carry the
// /REF/<ref>/UETR/<uetr>/ tokens the matcher extracts.
func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	foreignCurrencies := []string{"EUR", "USD", "GBP", "JPY", "CHF"}

	holders := []string{
		"Harrison Pastoral Co",
		"Okafor Trading Pty Ltd",
		"Westfield Machinery Imports",
		"Tran & Nguyen Seafood Exports",
		"Callaghan Mining Services",
		"Brightwater Vineyards",
		"Southern Cross Freight",
		"Kalgoorlie Equipment Hire",
		"Port Douglas Marine Supply",
		"Eucla Grain Cooperative",
	}

	correspondents := []struct {
		name string
		bic  string
	}{
		{"Deutsche Bank AG", "DEUTDEFF"},
		{"BNP Paribas", "BNPAFRPP"},
		{"Barclays Bank", "BARCGB22"},
		{"Mizuho Bank", "MHCBJPJT"},
		{"UBS Switzerland", "UBSWCHZH"},
	}

	var accounts []domain.Account

	// Nostros, one per foreign currency.
	for _, ccy := range foreignCurrencies {
		accounts = append(accounts, domain.Account{
			ID:       "NOSTRO-" + ccy,
			Holder:   "Meridian Bank " + ccy + " Nostro",
			Kind:     domain.AccountNostro,
			Currency: ccy,
			Balance:  decimal.NewFromInt(int64(2_000_000 + rng.Intn(4_000_000))),
			Status:   "Active",
		})
	}

	// Correspondent vostros in AUD with a mix of debit authorities.
	authorities := []string{"Yes", "By Request", "Yes", "", "Yes"}
	for i, corr := range correspondents {
		accounts = append(accounts, domain.Account{
			ID:        fmt.Sprintf("VOSTRO-%s-AUD", corr.bic),
			Holder:    fmt.Sprintf("%s (%s)", corr.name, corr.bic),
			Kind:      domain.AccountVostro,
			Currency:  "AUD",
			Balance:   decimal.NewFromInt(int64(300_000 + rng.Intn(700_000))),
			Authority: authorities[i],
			Status:    "Active",
		})
	}

	// Client accounts; roughly one in five has no email on file, and a
	// couple are inactive to exercise identity validation.
	for i, holder := range holders {
		email := fmt.Sprintf("accounts+%d@%s.example", i+1, slug(holder))
		if i%5 == 4 {
			email = ""
		}
		status := "Active"
		if i == 8 {
			status = "Closed"
		}
		accounts = append(accounts, domain.Account{
			ID:       fmt.Sprintf("CLI-%06d", 400+i),
			Holder:   holder,
			Kind:     domain.AccountClient,
			Currency: "AUD",
			Balance:  decimal.NewFromInt(int64(20_000 + rng.Intn(400_000))),
			Status:   status,
			Email:    email,
		})
	}

	// Foreign-currency accounts for a subset of holders.
	for i, holder := range holders[:4] {
		accounts = append(accounts, domain.Account{
			ID:       fmt.Sprintf("FCA-%04d", i+1),
			Holder:   holder,
			Kind:     domain.AccountFCA,
			Currency: foreignCurrencies[i%len(foreignCurrencies)],
			Balance:  decimal.NewFromInt(int64(10_000 + rng.Intn(200_000))),
			Status:   "Active",
		})
	}

	accounts = append(accounts,
		domain.Account{
			ID:       "SUSP-AUD",
			Holder:   "Returns Suspense",
			Kind:     domain.AccountSuspense,
			Currency: "AUD",
			Balance:  decimal.Zero,
			Status:   "Active",
		},
		domain.Account{
			ID:       "BRSET-001",
			Holder:   "Branch Settlement",
			Kind:     domain.AccountBranchSettlement,
			Currency: "AUD",
			Balance:  decimal.Zero,
			Status:   "Active",
		},
	)

	writeJSONFile(filepath.Join(baseDir, "accounts.json"), accounts)
	fmt.Printf("Generated %d accounts -> accounts.json\n", len(accounts))

	// Nostro statement entries. Most encode the /REF/ and /UETR/ tokens
	// of a plausible return; a few are unrelated noise, and a couple carry
	// an amount that will not corroborate (partial matches).
	var entries []domain.StatementEntry
	for i := 0; i < 40; i++ {
		ccy := foreignCurrencies[rng.Intn(len(foreignCurrencies))]
		corr := correspondents[rng.Intn(len(correspondents))]
		amount := fmt.Sprintf("%d.%02d", 500+rng.Intn(50_000), rng.Intn(100))
		day := 1 + rng.Intn(28)

		ref := fmt.Sprintf("E2E-%05d", 10_000+i)
		uetr := syntheticUETR(rng)
		reference := fmt.Sprintf("RETURN OF FUNDS /REF/%s/UETR/%s/ ORIG %s", ref, uetr, corr.bic)

		direction := "CR"
		if i%9 == 8 {
			// Outbound noise.
			direction = "DR"
			reference = fmt.Sprintf("OUTWARD PAYMENT BATCH %04d %s", i, corr.bic)
		}

		entries = append(entries, domain.StatementEntry{
			ID:        fmt.Sprintf("STMT-%s-%04d", ccy, i+1),
			AccountID: "NOSTRO-" + ccy,
			Kind:      "nostro",
			ValueDate: fmt.Sprintf("2026-08-%02d", day),
			Currency:  ccy,
			Amount:    amount,
			Direction: direction,
			Reference: reference,
		})
	}

	writeJSONFile(filepath.Join(baseDir, "statements.json"), entries)
	fmt.Printf("Generated %d statement entries -> statements.json\n", len(entries))

	fmt.Println("Test data generation complete.")
}

func syntheticUETR(rng *rand.Rand) string {
	b := make([]byte, 16)
	rng.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}
	return string(out)
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	candidates := []string{
		"testdata",
		"./testdata",
		filepath.Join("..", "testdata"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	// Fallback.
	return "testdata"
}
