package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/amagraneronline/curso-python/internal/auth"
	"github.com/amagraneronline/curso-python/internal/curriculum"
	"github.com/amagraneronline/curso-python/internal/dashboard"
	"github.com/amagraneronline/curso-python/internal/progress"
)

// Error codes returned in the "code" field.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeIncompleteAnswers  = "INCOMPLETE_ANSWERS"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeModuleLocked       = "MODULE_LOCKED"
	CodeNotFound           = "NOT_FOUND"
	CodeUnlockCodeMismatch = "UNLOCK_CODE_MISMATCH"
	CodeGradingUnavailable = "GRADING_SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// APIError is the body of every failed request.
type APIError struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	DismissAfterMS int64  `json:"dismiss_after_ms,omitempty"`
	cause          error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

type errorResponse struct {
	Error *APIError `json:"error"`
}

// writeError logs and writes an error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError) {
	attrs := []any{
		"code", apiErr.Code,
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestIDFrom(r.Context()),
	}
	if apiErr.cause != nil {
		attrs = append(attrs, "cause", apiErr.cause.Error())
	}

	if status >= 500 {
		slog.Error("api error", attrs...)
	} else {
		slog.Warn("api error", attrs...)
	}

	writeJSON(w, status, errorResponse{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusBadRequest, &APIError{Code: CodeBadRequest, Message: message})
}

// writeServiceError maps domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := classify(err)
	writeError(w, r, status, apiErr)
}

func classify(err error) (int, *APIError) {
	var mismatch *progress.MismatchError
	switch {
	case errors.As(err, &mismatch):
		return http.StatusUnprocessableEntity, &APIError{
			Code:           CodeUnlockCodeMismatch,
			Message:        mismatch.Error(),
			DismissAfterMS: mismatch.DismissAfter.Milliseconds(),
		}
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, &APIError{Code: CodeDuplicateEmail, Message: "Este email ya está registrado."}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, &APIError{Code: CodeInvalidCredentials, Message: "Credenciales incorrectas. Por favor, revisa tu email y contraseña."}
	case errors.Is(err, auth.ErrSessionNotFound):
		return http.StatusUnauthorized, &APIError{Code: CodeUnauthorized, Message: "authentication required"}
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, &APIError{Code: CodeInvalidInput, Message: err.Error()}
	case errors.Is(err, progress.ErrIncompleteAnswers):
		return http.StatusBadRequest, &APIError{Code: CodeIncompleteAnswers, Message: err.Error()}
	case errors.Is(err, progress.ErrModuleLocked):
		return http.StatusForbidden, &APIError{Code: CodeModuleLocked, Message: err.Error()}
	case errors.Is(err, curriculum.ErrModuleNotFound),
		errors.Is(err, dashboard.ErrLearnerNotFound),
		errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, &APIError{Code: CodeNotFound, Message: err.Error()}
	default:
		return http.StatusInternalServerError, &APIError{Code: CodeInternal, Message: "an unexpected error occurred", cause: err}
	}
}
