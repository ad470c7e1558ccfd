package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or WriteError so the wire format is
// the same everywhere:
//
//   writeJSON(w, http.StatusOK, userResponse)
//   WriteError(w, err)
//
// CONSISTENT ERROR FORMAT:
//   {"error": "not_found", "message": "User not found."}

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/usersvc/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// MessageResponse is the body of operations that return no record.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be written before the body; once Encode writes,
// later header changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps a domain error to its HTTP status and machine code.
//
// errors.Is walks the chain, so a service error like
// fmt.Errorf("service/user: ...: %w", apperror.NotFound(...)) still maps to 404.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// WriteError maps a domain error to the appropriate HTTP status code and sends it.
// It is the only place an error becomes a status; middleware outside this
// package answers through it too.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := errorStatus(err)
		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   errorType,
				Message: appErr.Message,
			})
			return
		}
	}

	// Unknown error: never expose storage details to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// NotFound answers requests no route matched.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Not Found",
	})
}

// MethodNotAllowed answers requests whose path matched but method did not.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: "Method Not Allowed",
	})
}
