package api

import (
	"errors"
	"net/http"

	"github.com/okian/orsheep/internal/adapters/repository"
	service "github.com/okian/orsheep/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
)

// Error codes carried in the JSON error body.
const (
	codeBadRequest    = "bad_request"
	codeLimitExceeded = "limit_exceeded"
	codeNotFound      = "not_found"
	codeBackpressure  = "backpressure"
	codeUnavailable   = "unavailable"
	codeInternal      = "internal_error"
)

// statusFor maps an error kind to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, codeLimitExceeded
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, codeBackpressure
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, repository.ErrStore),
		errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
