package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/pipeline"
)

type failureResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Fields  []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("server.encode_failed", "error", err)
	}
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failureResponse{Success: false, Error: msg})
}

// statusFor maps a processing error to its HTTP status. Server errors get a
// generic message so internals do not leak to callers.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "document too large"
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrDuplicateOrderReference):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrDocumentUnreadable),
		errors.Is(err, common.ErrUnparsableReply),
		errors.Is(err, pipeline.ErrNoExtractionMethod):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, common.ErrModelCallFailed):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, common.ErrInternal.Error()
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "server.request_failed",
		"request_id", common.RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	resp := failureResponse{Success: false, Error: msg}
	var invalid common.ValidationErrors
	if errors.As(err, &invalid) {
		resp.Fields = invalid.Fields()
	}
	writeJSON(w, status, resp)
}
