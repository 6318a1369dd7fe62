// Package apperr defines the caller-visible error kinds of the marketplace.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an absent buyer, field or transaction.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks an actor acting on a resource it does not own.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition marks a status change not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict marks a write that kept losing against concurrent writers.
	ErrConflict = errors.New("conflict")
	// ErrUpstreamUnavailable marks a failing external data source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInternal marks an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps err to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case "validation_error", "invalid_transition":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "unauthorized":
		return http.StatusForbidden
	case "conflict":
		return http.StatusConflict
	case "upstream_unavailable":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Exposed reports whether err's message may be shown to the caller verbatim.
func Exposed(err error) bool {
	code := Code(err)
	return code != "internal" && code != ""
}

// Error carries a caller-facing message for one of the sentinel kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind whose message is shown to callers as is.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
