package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	mw "github.com/Harshitk-cp/engram/internal/api/middleware"
	"github.com/Harshitk-cp/engram/internal/domain"
)

// envelope is the wire format every business handler responds with:
// {success, data, meta} on success or {success:false, error} on failure,
// per the component spec's HTTP API section.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Meta    *meta      `json:"meta,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type meta struct {
	RequestID  string `json:"requestId,omitempty"`
	StartTime  string `json:"startTime,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondOK writes a 200 success envelope. started is when the handler
// began, used to compute durationMs.
func RespondOK(w http.ResponseWriter, r *http.Request, started time.Time, data any) {
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    data,
		Meta: &meta{
			RequestID:  mw.RequestIDFromContext(r.Context()),
			StartTime:  started.UTC().Format(time.RFC3339Nano),
			DurationMs: time.Since(started).Milliseconds(),
		},
	})
}

// RespondAccepted writes a 202 success envelope for async job acceptance.
func RespondAccepted(w http.ResponseWriter, r *http.Request, started time.Time, data any) {
	writeJSON(w, http.StatusAccepted, envelope{
		Success: true,
		Data:    data,
		Meta: &meta{
			RequestID:  mw.RequestIDFromContext(r.Context()),
			StartTime:  started.UTC().Format(time.RFC3339Nano),
			DurationMs: time.Since(started).Milliseconds(),
		},
	})
}

// RespondError maps an error to the taxonomy's HTTP status and the failure
// envelope. Non-domain errors fall back to 500 INTERNAL_ERROR.
func RespondError(w http.ResponseWriter, err error) {
	code := "INTERNAL_ERROR"
	status := http.StatusInternalServerError
	message := err.Error()

	var derr *domain.Error
	if errors.As(err, &derr) {
		message = derr.Message
		code = string(derr.Code)
		status = statusForCode(derr.Code)
	}

	writeJSON(w, status, envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: message},
	})
}

// RespondValidationError writes a 400 VALIDATION_ERROR envelope.
func RespondValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Error:   &errorBody{Code: "VALIDATION_ERROR", Message: message},
	})
}

// RespondNotFound writes a 404 NOT_FOUND envelope.
func RespondNotFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, envelope{
		Success: false,
		Error:   &errorBody{Code: "NOT_FOUND", Message: message},
	})
}

func statusForCode(code domain.Code) int {
	switch code {
	case domain.CodeInvalidInput, domain.CodeValidationError, domain.CodeInvalidConfig, domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodeNotFound, domain.CodeNotFoundInArchive, domain.CodeCentroidNotFound, domain.CodeUnknownSector:
		return http.StatusNotFound
	case domain.CodeJobInProgress:
		return http.StatusConflict
	case domain.CodeLoadThresholdExceeded:
		return http.StatusServiceUnavailable
	case domain.CodeTimeout:
		return http.StatusGatewayTimeout
	case domain.CodeCancelled:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
