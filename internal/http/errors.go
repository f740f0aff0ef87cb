package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/services"
)

// ErrRateLimited indicates a document received commands faster than allowed.
var ErrRateLimited = errors.New("command rate limit exceeded")

// httpError maps domain errors to HTTP errors.
func httpError(err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, services.ErrEmptyURI),
		errors.Is(err, controller.ErrUnknownCommand),
		errors.Is(err, controller.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, controller.ErrNotActive),
		errors.Is(err, controller.ErrInvalidTransition):
		code = http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		code = http.StatusTooManyRequests
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, "internal error").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error())
}
