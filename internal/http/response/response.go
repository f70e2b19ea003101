// Package response writes JSON error envelopes for handlers that run outside
// huma: router fallbacks and the SSE endpoint.
package response

import (
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	domainerrors "github.com/libraryhub/library-server/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Version identifies the envelope layout shared by every API response.
const Version = 1

// Envelope is the failure body. Error carries the machine-readable code and
// Message the human-readable text.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error writes an error envelope whose code is derived from status.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	write(w, status, Envelope{
		Error:   string(CodeForStatus(status)),
		Message: message,
	}, logger)
}

// NotFound writes a 404 envelope.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, message, logger)
}

// MethodNotAllowed writes a 405 envelope.
func MethodNotAllowed(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusMethodNotAllowed, message, logger)
}

// HandleError writes err as an envelope. Domain errors keep their code, status
// and details; anything else is logged and reported as a 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		write(w, domainErr.HTTPStatus(), Envelope{
			Error:   string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}, logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	Error(w, http.StatusInternalServerError, "internal server error", logger)
}

// CodeForStatus maps an HTTP status to the error code reported for it when
// no domain error is available.
func CodeForStatus(status int) domainerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domainerrors.CodeValidation
	case http.StatusUnauthorized:
		return domainerrors.CodeUnauthorized
	case http.StatusForbidden:
		return domainerrors.CodeForbidden
	case http.StatusNotFound:
		return domainerrors.CodeNotFound
	case http.StatusMethodNotAllowed:
		return domainerrors.CodeBadRequest
	case http.StatusConflict:
		return domainerrors.CodeConflict
	case http.StatusTooManyRequests:
		return domainerrors.CodeRateLimited
	default:
		return domainerrors.CodeInternal
	}
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	envelope.Version = Version
	envelope.Success = false

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}
