// File path: internal/api/errors.go
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/plainlyai/enablr/internal/common"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error, message string) {
	writeErrorResponse(w, r, status, err, errorResponse{Error: message})
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, err error, body errorResponse) {
	logger := common.Logger()
	reqID := middleware.GetReqID(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err, "request_id", reqID, "path", r.URL.Path)
	} else {
		logger.Warn("request failed", "status", status, "error", err, "request_id", reqID, "path", r.URL.Path)
	}
	body.Success = false
	body.RequestID = reqID
	writeJSON(w, status, body)
}

// respondError maps err onto a status and client-safe message. Upstream and
// unexpected failures are reported with fallback; their detail only reaches
// the log.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		validation *common.ValidationError
		notFound   *common.NotFoundError
		conflict   *common.ConflictError
		cfgErr     *common.ConfigurationError
	)
	switch {
	case errors.As(err, &validation):
		writeErrorResponse(w, r, http.StatusBadRequest, err, errorResponse{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &notFound):
		writeError(w, r, http.StatusNotFound, err, notFoundMessage(notFound.Resource))
	case errors.As(err, &conflict):
		writeError(w, r, http.StatusConflict, err, conflict.Message)
	case errors.As(err, &cfgErr):
		writeError(w, r, http.StatusInternalServerError, err, "Service configuration error")
	default:
		writeError(w, r, http.StatusInternalServerError, err, fallback)
	}
}

func notFoundMessage(resource string) string {
	switch resource {
	case "content page":
		return "Page not found"
	case "lead candidate":
		return "Candidate not found"
	case "lead":
		return "Lead not found"
	default:
		return "Not found"
	}
}
