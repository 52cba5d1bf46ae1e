package handlers

import (
	"net/http"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/inventory"
	"github.com/rs/zerolog"
)

// InventoryHandler serves stock items.
type InventoryHandler struct {
	svc *inventory.Service
	log zerolog.Logger
}

func NewInventoryHandler(svc *inventory.Service, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{svc: svc, log: log}
}

// List handles GET /api/inventory
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list inventory")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orEmpty(items))
}

// Create handles POST /api/inventory
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in inventory.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.svc.Create(r.Context(), middleware.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create inventory item")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, item)
}

// Update handles PATCH /api/inventory/{id}
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch domain.InventoryPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	item, err := h.svc.Update(r.Context(), middleware.UserFromContext(r.Context()), id, patch)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update inventory item")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete inventory item")
		return
	}
	message(w, "Item deleted")
}
