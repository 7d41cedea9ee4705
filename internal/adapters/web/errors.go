package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketplace-orders/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a service error onto the matching HTTP status.
// Anything unrecognized is logged and reported as a bare 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrMissingLineItemID):
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	case errors.Is(err, core.ErrForbidden):
		writeError(w, r, forbiddenMessage(err), "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, core.ErrLineItemNotFound):
		writeError(w, r, "line item not found", "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrOrderNotFound):
		writeError(w, r, "order not found", "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidCalculator),
		errors.Is(err, core.ErrInvalidTaxRate),
		errors.Is(err, core.ErrUnsupportedTarget):
		h.logger.ErrorContext(r.Context(), "order could not be recalculated", "error", err)
		writeError(w, r, err.Error(), "UNPROCESSABLE", http.StatusUnprocessableEntity)
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

func forbiddenMessage(err error) string {
	var denied *core.DeniedError
	if errors.As(err, &denied) {
		return denied.Error()
	}
	return "forbidden"
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	writeBody(w, v)
}

func writeBody(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
