package server

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/msgtopology/internal/middleware"
	"github.com/nfrund/msgtopology/internal/topology"
)

// ErrorResponse is the body of every JSON error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// setupErrorHandling installs the HTTP error handler. Topology errors map to client
// errors; anything else is logged with a stack trace and reported as a 500.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := classify(err)
		if code == http.StatusInternalServerError {
			middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
				"error", err.Error(),
				"path", c.Request().URL.Path,
				"stack_trace", string(debug.Stack()),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			slog.Error("Failed to write error response", "error", err)
		}
	}
}

func classify(err error) (int, ErrorResponse) {
	var terr *topology.Error
	if errors.As(err, &terr) {
		return statusFor(terr.Kind), ErrorResponse{Error: err.Error(), Kind: string(terr.Kind)}
	}

	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		return http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Kind: string(topology.ErrorInvalidInput)}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		return he.Code, ErrorResponse{Error: msg}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
}

func statusFor(kind topology.ErrorKind) int {
	switch kind {
	case topology.ErrorInvalidInput:
		return http.StatusBadRequest
	case topology.ErrorChannelNotFound, topology.ErrorNotInitialized:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
