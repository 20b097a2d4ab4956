package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gyaneshwarpardhi/alerts/internal/alerts"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// writeServiceError maps a backend error: invalid arguments become 400 with the
// message, anything else 500. The original error is logged at debug level.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Debug("events request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	var inv *alerts.InvalidArgumentError
	switch {
	case errors.As(err, &inv):
		badRequest(w, "Bad arguments: "+inv.Msg)
	case alerts.IsInvalidArgument(err):
		badRequest(w, "Bad arguments: "+err.Error())
	default:
		internalError(w)
	}
}

// writeOK writes an empty 200 response.
func writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}
