package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/ingestion"
	"github.com/meridianbank/returns-engine/internal/logger"
	"github.com/meridianbank/returns-engine/internal/pipeline"
	"github.com/meridianbank/returns-engine/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	engine    *pipeline.Engine
	caseRepo  *repository.CaseRepo
	acctRepo  *repository.AccountRepo
	auditRepo *repository.AuditRepo
	ingestSvc *ingestion.Service
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.For("api").Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- SubmitCase ---

// submitRequest carries the two ISO 20022 payloads plus optional manual
// overrides. The boolean overrides default to true when absent: a case
// submitted without them is assumed non-branch and sanctions-cleared.
type submitRequest struct {
	Pacs004   string `json:"pacs004"`
	Pacs008   string `json:"pacs008"`
	Overrides struct {
		FXLossHint      string `json:"fx_loss_hint,omitempty"`
		NonBranch       *bool  `json:"non_branch,omitempty"`
		SanctionsPassed *bool  `json:"sanctions_passed,omitempty"`
	} `json:"overrides"`
}

func (req *submitRequest) overrides() (domain.Overrides, error) {
	ov := domain.Overrides{NonBranch: true, SanctionsPassed: true}
	if req.Overrides.NonBranch != nil {
		ov.NonBranch = *req.Overrides.NonBranch
	}
	if req.Overrides.SanctionsPassed != nil {
		ov.SanctionsPassed = *req.Overrides.SanctionsPassed
	}
	if req.Overrides.FXLossHint != "" {
		hint, err := decimal.NewFromString(req.Overrides.FXLossHint)
		if err != nil {
			return ov, errors.New("fx_loss_hint is not a decimal amount")
		}
		ov.FXLossHint = &hint
	}
	return ov, nil
}

func (h *Handlers) SubmitCase(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Pacs004 == "" || req.Pacs008 == "" {
		writeError(w, http.StatusBadRequest, "pacs004 and pacs008 payloads are required")
		return
	}

	ov, err := req.overrides()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ret, retErr := ingestion.ParseReturn([]byte(req.Pacs004))
	orig, origErr := ingestion.ParseOriginal([]byte(req.Pacs008))

	c := domain.NewCase(uuid.NewString(), ret, orig, ov)

	// A record failing required-field validation opens a failed case
	// with no ledger effect.
	if parseErr := errors.Join(retErr, origErr); parseErr != nil {
		c.Status = domain.StatusFailed
		c.FailureReason = parseErr.Error()
		if err := h.caseRepo.Save(c); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, c)
		return
	}

	if err := h.engine.Run(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// --- ListCases ---

func (h *Handlers) ListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cases, err := h.caseRepo.List(q.Get("status"), parseIntDefault(q.Get("limit"), 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cases": cases,
		"total": len(cases),
	})
}

// --- GetCase ---

func (h *Handlers) GetCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.caseRepo.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// --- GetCaseAudit ---

func (h *Handlers) GetCaseAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	events, err := h.auditRepo.ListByCase(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"case_id": id,
		"events":  events,
	})
}

// --- IngestStatement ---

func (h *Handlers) IngestStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	format := r.FormValue("format")
	if format == "" {
		writeError(w, http.StatusBadRequest, "format is required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.ingestSvc.IngestStatement(data, format)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- ListAccounts ---

func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.acctRepo.List(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"total":    len(accounts),
	})
}
