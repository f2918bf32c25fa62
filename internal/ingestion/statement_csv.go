package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// ParseStatementCSV parses the standard comma-separated nostro/vostro
// statement export.
//
// Expected header:
//
//	entry_id,account_id,kind,value_date,currency,amount,direction,reference
func ParseStatementCSV(data []byte) ([]domain.StatementEntry, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 8 {
		return nil, fmt.Errorf("expected 8 columns, got %d", len(header))
	}

	var entries []domain.StatementEntry
	lineNum := 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if len(row) < 8 {
			continue
		}

		entry, err := buildStatementEntry(
			row[0], row[1], row[2], row[3], row[4], row[5], row[6], row[7])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ParseStatementPipe parses the pipe-delimited legacy statement feed.
// Entry kind is not carried in the feed; every row is a nostro entry.
//
// Expected header:
//
//	ENTRY|ACCOUNT|VALUE_DATE|CCY|AMOUNT|DRCR|NARRATIVE
func ParseStatementPipe(data []byte) ([]domain.StatementEntry, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = '|'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 7 {
		return nil, fmt.Errorf("expected 7 columns, got %d", len(header))
	}

	var entries []domain.StatementEntry
	lineNum := 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if len(row) < 7 {
			continue
		}

		entry, err := buildStatementEntry(
			row[0], row[1], "nostro", row[2], row[3], row[4], row[5], row[6])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func buildStatementEntry(id, accountID, kind, valueDate, ccy, amount, direction, reference string) (domain.StatementEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.StatementEntry{}, fmt.Errorf("%w: entry id", ErrMissingField)
	}

	amount = strings.TrimSpace(amount)
	if _, err := decimal.NewFromString(amount); err != nil {
		return domain.StatementEntry{}, fmt.Errorf("amount %q: %w", amount, err)
	}

	valueDate = strings.TrimSpace(valueDate)
	if _, err := time.Parse("2006-01-02", valueDate); err != nil {
		return domain.StatementEntry{}, fmt.Errorf("value date %q: %w", valueDate, err)
	}

	direction = strings.ToUpper(strings.TrimSpace(direction))
	switch direction {
	case "CR", "DR":
	case "C":
		direction = "CR"
	case "D":
		direction = "DR"
	default:
		return domain.StatementEntry{}, fmt.Errorf("direction %q", direction)
	}

	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != "nostro" && kind != "vostro" {
		return domain.StatementEntry{}, fmt.Errorf("entry kind %q", kind)
	}

	return domain.StatementEntry{
		ID:        id,
		AccountID: strings.TrimSpace(accountID),
		Kind:      kind,
		ValueDate: valueDate,
		Currency:  strings.ToUpper(strings.TrimSpace(ccy)),
		Amount:    amount,
		Direction: direction,
		Reference: strings.TrimSpace(reference),
	}, nil
}
