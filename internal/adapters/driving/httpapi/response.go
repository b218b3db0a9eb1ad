package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownPipeline), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error, runID string) {
	status := statusFor(err)
	body := ErrorResponse{
		Status:    "error",
		Error:     err.Error(),
		Timestamp: s.now().UTC().Format(time.RFC3339),
		RunID:     runID,
	}
	if status == http.StatusInternalServerError && s.debug {
		body.Stack = string(debug.Stack())
	}
	writeJSON(w, status, body)
}
