package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"reflector/internal/domain"
	"reflector/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var invalidDoc *domain.InvalidDocumentError

	switch {
	case errors.As(err, &invalidDoc):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, invalidDoc.Error(), map[string]interface{}{
			"duplicate_ids": invalidDoc.DuplicateIDs,
		})
	case errors.Is(err, domain.ErrAdapterTimeout):
		httputil.RespondError(w, http.StatusGatewayTimeout, "model did not respond in time")
	case errors.Is(err, domain.ErrAdapter):
		logger.Warn("llm adapter failed", "error", err)
		httputil.RespondError(w, http.StatusBadGateway, "model request failed")
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondParseError maps httputil.ParseJSON failures
func respondParseError(w http.ResponseWriter, err error) {
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
}
