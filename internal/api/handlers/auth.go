package handlers

import (
	"net/http"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/auth"
	"github.com/rs/zerolog"
)

// AuthHandler serves login and the current-user lookup.
type AuthHandler struct {
	svc *auth.Service
	log zerolog.Logger
}

func NewAuthHandler(svc *auth.Service, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to log in")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}
