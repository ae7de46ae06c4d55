// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/member-hub/member-hub/internal/shared"
)

// RespondError maps the shared error taxonomy to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthenticated", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidValue):
		Problem(w, http.StatusBadRequest, "Invalid Value", err.Error())
	case errors.Is(err, shared.ErrUnknownPredicate):
		// A misconfigured gate is a server fault, not a client one.
		Problem(w, http.StatusInternalServerError, "Gate Misconfigured", err.Error())
	case errors.Is(err, shared.ErrSequenceConflict):
		Problem(w, http.StatusServiceUnavailable, "Try Again", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
