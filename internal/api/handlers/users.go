package handlers

import (
	"net/http"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/users"
	"github.com/rs/zerolog"
)

// UsersHandler serves the admin user directory.
type UsersHandler struct {
	svc *users.Service
	log zerolog.Logger
}

func NewUsersHandler(svc *users.Service, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{svc: svc, log: log}
}

// List handles GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list users")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orEmpty(list))
}

// Create handles POST /api/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in users.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.svc.Create(r.Context(), middleware.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create user")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, u)
}

// Update handles PATCH /api/users/{id}
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch domain.UserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	u, err := h.svc.Update(r.Context(), middleware.UserFromContext(r.Context()), id, patch)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update user")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, u)
}

// Deactivate handles DELETE /api/users/{id}
func (h *UsersHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Deactivate(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to deactivate user")
		return
	}
	message(w, "User deactivated")
}
