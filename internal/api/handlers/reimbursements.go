package handlers

import (
	"net/http"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/reimbursement"
	"github.com/rs/zerolog"
)

// ReimbursementsHandler serves the reimbursement workflow.
type ReimbursementsHandler struct {
	svc *reimbursement.Service
	log zerolog.Logger
}

func NewReimbursementsHandler(svc *reimbursement.Service, log zerolog.Logger) *ReimbursementsHandler {
	return &ReimbursementsHandler{svc: svc, log: log}
}

// Request handles POST /api/reimbursements
func (h *ReimbursementsHandler) Request(w http.ResponseWriter, r *http.Request) {
	var in reimbursement.RequestInput
	if !decodeJSON(w, r, &in) {
		return
	}
	reimb, err := h.svc.Request(r.Context(), middleware.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to request reimbursement")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, reimb)
}

// Mine handles GET /api/reimbursements/mine
func (h *ReimbursementsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMine(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list reimbursements")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orEmpty(list))
}

// Pending handles GET /api/reimbursements/pending
func (h *ReimbursementsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPending(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list pending reimbursements")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orEmpty(list))
}

// Approve handles POST /api/reimbursements/{id}/approve
func (h *ReimbursementsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	reimb, err := h.svc.Approve(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to approve reimbursement")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reimb)
}

// Reject handles POST /api/reimbursements/{id}/reject
func (h *ReimbursementsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	reimb, err := h.svc.Reject(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to reject reimbursement")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reimb)
}
