package ingestion

import (
	"encoding/json"
	"fmt"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// statementFile is the JSON statement export produced by the account
// services platform: one file per account, entries nested under it.
type statementFile struct {
	StatementID string `json:"statement_id"`
	AccountID   string `json:"account_id"`
	Kind        string `json:"kind"`
	Entries     []struct {
		Seq       int    `json:"seq"`
		ValueDate string `json:"value_date"`
		Currency  string `json:"currency"`
		Amount    string `json:"amount"`
		Direction string `json:"direction"`
		Reference string `json:"reference"`
	} `json:"entries"`
}

// ParseStatementJSON parses the JSON statement export. Entry ids are
// derived from the statement id and the entry sequence number.
func ParseStatementJSON(data []byte) ([]domain.StatementEntry, error) {
	var file statementFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if file.StatementID == "" {
		return nil, fmt.Errorf("%w: statement id", ErrMissingField)
	}

	var entries []domain.StatementEntry
	for i, e := range file.Entries {
		entry, err := buildStatementEntry(
			fmt.Sprintf("%s-%04d", file.StatementID, e.Seq),
			file.AccountID, file.Kind, e.ValueDate, e.Currency,
			e.Amount, e.Direction, e.Reference)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
