package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meridianbank/returns-engine/internal/ingestion"
	"github.com/meridianbank/returns-engine/internal/pipeline"
	"github.com/meridianbank/returns-engine/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	engine *pipeline.Engine,
	caseRepo *repository.CaseRepo,
	acctRepo *repository.AccountRepo,
	auditRepo *repository.AuditRepo,
	ingestSvc *ingestion.Service,
) http.Handler {
	h := &Handlers{
		engine:    engine,
		caseRepo:  caseRepo,
		acctRepo:  acctRepo,
		auditRepo: auditRepo,
		ingestSvc: ingestSvc,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Case intake and inspection.
		r.Post("/cases", h.SubmitCase)
		r.Get("/cases", h.ListCases)
		r.Get("/cases/{id}", h.GetCase)
		r.Get("/cases/{id}/audit", h.GetCaseAudit)

		// Statement ingestion.
		r.Post("/statements/ingest", h.IngestStatement)

		// Ledger accounts.
		r.Get("/accounts", h.ListAccounts)
	})

	return r
}
