package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/splitfair/splitfair/internal/apperr"
)

type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteAppError maps the error taxonomy to HTTP statuses. Internal causes
// are logged and replaced with a generic message.
func WriteAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)

	msg := "internal error"
	var details any
	if kind != apperr.KindInternal {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			msg = ae.Message
			details = ae.Details
		} else {
			msg = err.Error()
		}
	} else {
		slog.Error("request failed", "err", err)
	}

	WriteError(w, statusFor(kind), string(kind), msg, details)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
