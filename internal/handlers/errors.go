package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/minibank/internal/apperrors"
	"github.com/nkiryanov/minibank/internal/handlers/render"
	"github.com/nkiryanov/minibank/internal/logger"
)

// Status codes for error kinds, unknown errors are 500
var errorStatuses = []struct {
	kind   error
	status int
}{
	{apperrors.ErrValidation, http.StatusBadRequest},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized},
	{apperrors.ErrNotFound, http.StatusNotFound},
	{apperrors.ErrConflict, http.StatusConflict},
	{apperrors.ErrPolicyViolation, http.StatusUnprocessableEntity},
	{apperrors.ErrInsufficientFunds, http.StatusPaymentRequired},
}

// renderError writes service error with the message safe for clients
// Internal errors are logged and hidden behind generic message
func renderError(w http.ResponseWriter, l logger.Logger, err error) {
	for _, e := range errorStatuses {
		if !errors.Is(err, e.kind) {
			continue
		}

		msg := apperrors.Message(err)
		if msg == "" {
			msg = http.StatusText(e.status)
		}
		render.ServiceError(w, msg, e.status)
		return
	}

	l.Error("Request failed", "error", err)
	render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
}

func renderForbidden(w http.ResponseWriter) {
	render.ServiceError(w, "Access denied", http.StatusForbidden)
}
