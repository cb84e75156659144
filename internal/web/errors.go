package web

// errors.go maps engine errors onto HTTP responses.
//
// Every error is logged with its technical detail and the request id, then
// returned to the client as the user-facing message from core.MapError.

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/finimport/internal/core"
	"github.com/JonMunkholm/finimport/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an engine error.
func statusFor(err error) int {
	var (
		parseErr *core.ParseError
		emptyErr *core.EmptyDataError
		valErr   *core.ValidationError
		resErr   *core.ResolutionError
		dupErr   *core.DuplicateError
		stateErr *core.InvalidStateError
		sysErr   *core.SystemError
		tooBig   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &parseErr), errors.As(err, &emptyErr), errors.Is(err, core.ErrNoFile):
		return http.StatusBadRequest
	case errors.As(err, &valErr), errors.As(err, &resErr), errors.As(err, &dupErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &stateErr), errors.Is(err, core.ErrImportLocked):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.As(err, &sysErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped ErrorResponse.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorStatus(w, r, err, statusFor(err))
}

func respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}
	// Internal detail stays in the log.
	text := err.Error()
	if status >= http.StatusInternalServerError {
		text = msg.Message
	}
	writeJSON(w, status, ErrorResponse{
		Error:   text,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// badRequest reports malformed input that never reached the engine.
func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	respondErrorStatus(w, r, fmt.Errorf("invalid request: %s", detail), http.StatusBadRequest)
}
