package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/ministry-backoffice/internal/analytics"
	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/rs/zerolog"
)

// AnalyticsHandler serves dashboard totals.
type AnalyticsHandler struct {
	svc *analytics.Service
	log zerolog.Logger
}

func NewAnalyticsHandler(svc *analytics.Service, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, log: log}
}

// Summary handles GET /api/analytics/summary?start=&end=
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(r.Context(), rng)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build analytics summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// ActivityHandler serves the audit trail.
type ActivityHandler struct {
	svc *audit.Service
	log zerolog.Logger
}

func NewActivityHandler(svc *audit.Service, log zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{svc: svc, log: log}
}

// List handles GET /api/activity?start=&end=&entity_type=&user_id=
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}
	f := domain.ActivityFilter{Range: rng, EntityType: r.URL.Query().Get("entity_type")}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		f.UserID = &id
	}

	logs, err := h.svc.List(r.Context(), middleware.UserFromContext(r.Context()), f)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list activity")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orEmpty(logs))
}
