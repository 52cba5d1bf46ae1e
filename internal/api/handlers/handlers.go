// Package handlers exposes the back-office services over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// writeServiceError maps a service error onto its HTTP status. Unknown
// errors are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		middleware.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrLocked):
		middleware.WriteError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &maxBytes):
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	default:
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathID parses the {id} route variable.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// dateRange parses the optional ?start=&end= calendar dates.
func dateRange(w http.ResponseWriter, r *http.Request) (domain.DateRange, bool) {
	var out domain.DateRange
	q := r.URL.Query()
	for _, p := range []struct {
		key string
		dst **civil.Date
	}{{"start", &out.Start}, {"end", &out.End}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		d, err := civil.ParseDate(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid "+p.key+" date, expected YYYY-MM-DD")
			return domain.DateRange{}, false
		}
		*p.dst = &d
	}
	return out, true
}

func message(w http.ResponseWriter, text string) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": text})
}

// orEmpty keeps empty listings encoded as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
