// Package handlers provides the HTTP handlers of the chat API.
package handlers

import (
	"net/http"
	"strconv"

	"webchat-backend/pkg/api"
	appErrors "webchat-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// handleServiceError converts service errors to appropriate HTTP responses
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case appErrors.IsValidation(err):
		logger.Warn("Validation error", zap.Error(err))
		api.Error(w, http.StatusBadRequest, err.Error())
	case appErrors.IsNotFound(err):
		logger.Warn("Not found", zap.Error(err))
		api.Error(w, http.StatusNotFound, err.Error())
	case appErrors.IsForbidden(err):
		logger.Warn("Forbidden", zap.Error(err))
		api.Error(w, http.StatusForbidden, err.Error())
	default:
		logger.Error("Internal error", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// pathID parses a numeric path parameter. The second return is false when
// the parameter is missing or not a positive integer.
func pathID(r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter, falling back to
// def when absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryInt64 parses an optional int64 query parameter.
func queryInt64(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
