package handlers

import (
	"net/http"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/ledger"
	"github.com/rs/zerolog"
)

// LedgerHandler serves ledger entries and the daily summary.
type LedgerHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

func NewLedgerHandler(svc *ledger.Service, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, log: log}
}

// Create handles POST /api/ledger
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ledger.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	entry, err := h.svc.Create(r.Context(), middleware.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create ledger entry")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, entry)
}

// List handles GET /api/ledger?start=&end=
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.List(r.Context(), rng)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list ledger entries")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orEmpty(entries))
}

// DailySummary handles GET /api/ledger/daily-summary?start=&end=
func (h *LedgerHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.DailySummary(r.Context(), rng)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build daily summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// Update handles PATCH /api/ledger/{id}
func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch domain.LedgerEntryPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	entry, err := h.svc.Update(r.Context(), middleware.UserFromContext(r.Context()), id, patch)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update ledger entry")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/ledger/{id}
func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete ledger entry")
		return
	}
	message(w, "Entry deleted")
}
