package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Domain error taxonomy. Services return these (wrapped or bare); the HTTP
// layer maps them to status codes in one place so handlers stay clean.
var (
	// ErrInvalidFilter rejects an inconsistent discovery filter combination.
	ErrInvalidFilter = errors.New("invalid filter combination")

	// ErrInvalidArgument rejects malformed or self-referential input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownProfile is returned when a referenced profile does not exist.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrNotAuthorized is returned when a caller acts on behalf of a profile
	// it does not own, or responds to an action that does not target it.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrConflict reports a conditional insert whose suppressed duplicate
	// could not be read back, i.e. the row vanished between the two steps.
	ErrConflict = errors.New("conflict")
)

// HTTPStatus converts a service error into an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrInvalidFilter), errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest

	case errors.Is(err, ErrUnknownProfile), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden

	case errors.Is(err, ErrConflict):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}
