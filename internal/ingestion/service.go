package ingestion

import (
	"crypto/sha256"
	"fmt"

	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/logger"
	"github.com/meridianbank/returns-engine/internal/repository"
)

// IngestResult is returned from a successful statement ingestion.
type IngestResult struct {
	FileHash          string `json:"file_hash"`
	EntriesParsed     int    `json:"entries_parsed"`
	EntriesIngested   int    `json:"entries_ingested"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
}

// Service loads bank statement files into the statement store. The
// matcher scans stored entries; ingesting a fresh statement is what
// turns a resend-looping case into a matchable one.
type Service struct {
	stmtRepo *repository.StatementRepo
}

func NewService(stmtRepo *repository.StatementRepo) *Service {
	return &Service{stmtRepo: stmtRepo}
}

// IngestStatement parses a statement file and stores its entries.
// Re-ingesting the same file is harmless: entries are keyed by id and
// duplicates are skipped.
//
// format must be one of: csv, pipe, json
func (s *Service) IngestStatement(data []byte, format string) (*IngestResult, error) {
	var entries []domain.StatementEntry
	var err error

	switch format {
	case "csv":
		entries, err = ParseStatementCSV(data)
	case "pipe":
		entries, err = ParseStatementPipe(data)
	case "json":
		entries, err = ParseStatementJSON(data)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	inserted, err := s.stmtRepo.BulkInsert(entries)
	if err != nil {
		return nil, fmt.Errorf("insert entries: %w", err)
	}

	result := &IngestResult{
		FileHash:          fmt.Sprintf("%x", sha256.Sum256(data)),
		EntriesParsed:     len(entries),
		EntriesIngested:   inserted,
		DuplicatesSkipped: len(entries) - inserted,
	}

	logger.For("ingestion").Info("statement ingested",
		"format", format,
		"parsed", result.EntriesParsed,
		"ingested", result.EntriesIngested,
		"duplicates", result.DuplicatesSkipped)
	return result, nil
}
