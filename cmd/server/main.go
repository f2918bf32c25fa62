package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/api"
	"github.com/meridianbank/returns-engine/internal/audit"
	"github.com/meridianbank/returns-engine/internal/checklist"
	"github.com/meridianbank/returns-engine/internal/config"
	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/eligibility"
	"github.com/meridianbank/returns-engine/internal/fxgate"
	"github.com/meridianbank/returns-engine/internal/fxrate"
	"github.com/meridianbank/returns-engine/internal/ingestion"
	"github.com/meridianbank/returns-engine/internal/logger"
	"github.com/meridianbank/returns-engine/internal/notify"
	"github.com/meridianbank/returns-engine/internal/pipeline"
	"github.com/meridianbank/returns-engine/internal/reason"
	"github.com/meridianbank/returns-engine/internal/reconcile"
	"github.com/meridianbank/returns-engine/internal/refund"
	"github.com/meridianbank/returns-engine/internal/repository"
	"github.com/meridianbank/returns-engine/internal/verify"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	log := logger.For("main")

	threshold, err := decimal.NewFromString(cfg.FXLossThreshold)
	if err != nil {
		log.Error("invalid FX loss threshold", "value", cfg.FXLossThreshold, "error", err)
		os.Exit(1)
	}

	log.Info("initializing database", "path", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Repositories.
	acctRepo := repository.NewAccountRepo(db)
	stmtRepo := repository.NewStatementRepo(db)
	caseRepo := repository.NewCaseRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	noticeRepo := repository.NewNoticeRepo(db)

	// Seed reference accounts and statement entries on an empty database.
	if err := seedIfEmpty(cfg.SeedDataDir, acctRepo, stmtRepo); err != nil {
		log.Warn("seeding failed", "error", err)
	}

	// Services.
	rates := fxrate.New(cfg.FXAPIBaseURL, cfg.ReportingCurrency, cfg.FXTimeout, cfg.RateCacheTTL)
	evaluator := eligibility.New(rates, reason.Default(), acctRepo, nil,
		cfg.ReportingCurrency, threshold)
	gate := fxgate.New(acctRepo, threshold)
	matcher := reconcile.NewMatcher(stmtRepo)
	sink := audit.NewRecorder(auditRepo)
	notices := notify.NewQueue(noticeRepo)
	verifier := verify.New()
	refunder := refund.NewEngine(acctRepo, matcher, notices, sink,
		cfg.ReportingCurrency, refund.Policy{})

	engine := pipeline.NewEngine(evaluator, gate, checklist.DefaultPolicy(),
		matcher, verifier, refunder, caseRepo, sink, notices, cfg.RetryCap)

	ingestSvc := ingestion.NewService(stmtRepo)

	router := api.NewRouter(engine, caseRepo, acctRepo, auditRepo, ingestSvc)

	log.Info("payment returns engine listening",
		"port", cfg.Port,
		"reporting_currency", cfg.ReportingCurrency,
		"fx_loss_threshold", threshold.String())

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// seedIfEmpty loads the reference accounts and statement entries shipped
// under the seed directory into an empty database.
func seedIfEmpty(dir string, acctRepo *repository.AccountRepo, stmtRepo *repository.StatementRepo) error {
	log := logger.For("seed")

	count, err := acctRepo.Count()
	if err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if count > 0 {
		log.Info("database already seeded", "accounts", count)
		return nil
	}

	var accounts []domain.Account
	if err := loadJSON(filepath.Join(dir, "accounts.json"), &accounts); err != nil {
		return err
	}
	inserted, err := acctRepo.BulkInsert(accounts)
	if err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}
	log.Info("seeded accounts", "inserted", inserted)

	var entries []domain.StatementEntry
	if err := loadJSON(filepath.Join(dir, "statements.json"), &entries); err != nil {
		return err
	}
	inserted, err = stmtRepo.BulkInsert(entries)
	if err != nil {
		return fmt.Errorf("seed statement entries: %w", err)
	}
	log.Info("seeded statement entries", "inserted", inserted)
	return nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
