// Package render writes JSON responses and maps domain errors to status codes
// for every handler package.
package render

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/draft"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

var validate = validator.New()

type errorResponse struct {
	Error  string `json:"error"`
	SaleID int64  `json:"sale_id,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes err with the status its class maps to. Unclassified errors are
// logged and reported as a bare internal error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cascade *sale.CascadeError
		commit  *draft.CommitError
		invalid validator.ValidationErrors
	)

	switch {
	case errors.As(err, &cascade):
		slog.Error("partial sale delete", "sale_id", cascade.SaleID, "path", r.URL.Path, "error", err)
		JSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), SaleID: cascade.SaleID})
	case errors.As(err, &commit):
		slog.Error("partial draft commit", "sale_id", commit.SaleID, "path", r.URL.Path, "error", err)
		JSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), SaleID: commit.SaleID})
	case errors.Is(err, sale.ErrNotFound), errors.Is(err, customer.ErrNotFound), errors.Is(err, item.ErrNotFound):
		JSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, sale.ErrInvalidArgument), errors.Is(err, customer.ErrInvalid),
		errors.Is(err, item.ErrInvalid), errors.As(err, &invalid):
		JSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		JSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// Decode reads a JSON body into v and validates it. On failure it writes the
// response and returns false.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		JSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}

	if err := validate.Struct(v); err != nil {
		JSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return false
	}

	return true
}

// ID parses a positive integer URL parameter.
func ID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		JSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}

	return id, true
}

// QueryInt parses an optional non-negative integer query parameter. A missing
// parameter reads as zero.
func QueryInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		JSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}

	return n, true
}

// QueryDate parses an optional YYYY-MM-DD query parameter. A missing
// parameter reads as the zero time.
func QueryDate(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}

	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		JSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name + ", want YYYY-MM-DD"})
		return time.Time{}, false
	}

	return t, true
}
