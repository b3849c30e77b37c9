package service

import (
	"errors"
	"net/http"

	"github.com/vouchd/vouchd/internal/core"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e HTTPError) Unwrap() error {
	return e.Wrapped
}

func httpError(statusCode int, err error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Wrapped:    err,
	}
}

// classify maps the core error kinds to status codes for callers that did
// not pick a specific one.
func classify(err error) *HTTPError {
	switch {
	case errors.Is(err, core.ErrValidation):
		return httpError(http.StatusUnprocessableEntity, err)
	case errors.Is(err, core.ErrAuthentication):
		return httpError(http.StatusUnauthorized, err)
	case errors.Is(err, core.ErrNotFound):
		return httpError(http.StatusNotFound, err)
	case errors.Is(err, core.ErrUnavailable):
		return httpError(http.StatusServiceUnavailable, err)
	default:
		return httpError(http.StatusInternalServerError, err)
	}
}
