package handler

import (
	"log/slog"
	"net/http"

	"reflector/internal/domain/services"
	"reflector/internal/httputil"
)

// ReflectHandler handles reflect HTTP requests
type ReflectHandler struct {
	service services.ReflectService
	logger  *slog.Logger
}

// NewReflectHandler creates a new reflect handler
func NewReflectHandler(service services.ReflectService, logger *slog.Logger) *ReflectHandler {
	return &ReflectHandler{
		service: service,
		logger:  logger,
	}
}

// Reflect runs one reflect turn over the posted document
// POST /api/reflect
func (h *ReflectHandler) Reflect(w http.ResponseWriter, r *http.Request) {
	var req services.ReflectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondParseError(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	resp, err := h.service.ProcessReflectionRequest(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// ListThreadSessions returns the conversation logs of a thread
// GET /api/threads/{id}/sessions
func (h *ReflectHandler) ListThreadSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListThreadSessions(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}
