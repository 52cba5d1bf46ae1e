package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/jobs"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// JobsHandler exposes background job state to admins.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if err := domain.RequireAdmin(middleware.UserFromContext(r.Context())); err != nil {
		writeServiceError(w, h.log, err, "")
		return
	}
	job, err := h.store.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs?receipt_id=&status=&limit=&offset=
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if err := domain.RequireAdmin(middleware.UserFromContext(r.Context())); err != nil {
		writeServiceError(w, h.log, err, "")
		return
	}

	query := r.URL.Query()
	filter := jobs.JobFilter{Status: jobs.JobStatus(query.Get("status"))}
	if v, err := strconv.ParseInt(query.Get("receipt_id"), 10, 64); err == nil {
		filter.ReceiptID = v
	}
	if v, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = v
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  orEmpty(list),
		"count": len(list),
	})
}
