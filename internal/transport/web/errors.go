// internal/transport/web/errors.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/eventlog"
)

const (
	codeNotFound          = "not_found"
	codeForbidden         = "forbidden"
	codeValidation        = "validation_error"
	codeInvalidState      = "invalid_state"
	codeConflict          = "conflict"
	codeInsufficientUnits = "insufficient_units"
	codeExpired           = "unit_expired"
	codeRateLimited       = "rate_limited"
	codeInvalidID         = "invalid_id"
	codeInvalidBody       = "invalid_request_body"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{Error: msg, Code: code})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// WriteServiceError maps workflow sentinels onto HTTP statuses.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blood.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, blood.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, blood.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, codeValidation, err.Error())
	case errors.Is(err, blood.ErrInvalidState):
		writeError(w, http.StatusConflict, codeInvalidState, err.Error())
	case errors.Is(err, blood.ErrInsufficientUnits):
		writeError(w, http.StatusConflict, codeInsufficientUnits, err.Error())
	case errors.Is(err, blood.ErrExpired):
		writeError(w, http.StatusConflict, codeExpired, err.Error())
	case errors.Is(err, blood.ErrConflict), errors.Is(err, eventlog.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, blood.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// WriteInvalidID rejects a malformed UUID path or query parameter.
func WriteInvalidID(w http.ResponseWriter, name string) {
	writeError(w, http.StatusBadRequest, codeInvalidID, "invalid "+name)
}

// WriteInvalidBody rejects an undecodable request body.
func WriteInvalidBody(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
}

// WriteValidation rejects a structurally valid body with bad field values.
func WriteValidation(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnprocessableEntity, codeValidation, msg)
}

// WriteJSON writes a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
