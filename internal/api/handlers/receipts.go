package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/gcs"
	"github.com/dvloznov/ministry-backoffice/internal/receipts"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// ReceiptsHandler serves receipt uploads, search and images.
type ReceiptsHandler struct {
	svc *receipts.Service
	log zerolog.Logger
}

func NewReceiptsHandler(svc *receipts.Service, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{svc: svc, log: log}
}

// Upload handles POST /api/receipts/upload (multipart field "file")
func (h *ReceiptsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, err := formFile(r, "file")
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to read upload")
		return
	}
	if file == nil {
		middleware.WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}

	receipt, err := h.svc.Upload(r.Context(), middleware.UserFromContext(r.Context()), *file)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to upload receipt")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, receipt)
}

// List handles GET /api/receipts
func (h *ReceiptsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list receipts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orEmpty(list))
}

// Update handles PATCH /api/receipts/{id}
func (h *ReceiptsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch domain.ReceiptPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	receipt, err := h.svc.Update(r.Context(), middleware.UserFromContext(r.Context()), id, patch)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update receipt")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, receipt)
}

// Search handles GET /api/receipts/search?q=
func (h *ReceiptsHandler) Search(w http.ResponseWriter, r *http.Request) {
	hits, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to search receipts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, hits)
}

// Image handles GET /api/receipts/image/{name}
func (h *ReceiptsHandler) Image(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.svc.Image(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load image")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// formFile reads the named multipart file. A missing file yields nil, nil.
func formFile(r *http.Request, field string) (*gcs.File, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: invalid multipart body", domain.ErrValidation)
	}
	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &gcs.File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
