package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflector/internal/capabilities"
	"reflector/internal/config"
	"reflector/internal/domain"
	"reflector/internal/domain/models"
	llmModels "reflector/internal/domain/models/llm"
	"reflector/internal/domain/services"
	"reflector/internal/httputil"
)

type stubReflectService struct {
	resp     *services.ReflectResponse
	err      error
	got      *services.ReflectRequest
	sessions []llmModels.ReflectSession
	threadID string
}

func (s *stubReflectService) ProcessReflectionRequest(_ context.Context, req *services.ReflectRequest) (*services.ReflectResponse, error) {
	s.got = req
	return s.resp, s.err
}

func (s *stubReflectService) ListThreadSessions(_ context.Context, threadID string) ([]llmModels.ReflectSession, error) {
	s.threadID = threadID
	return s.sessions, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMux(svc services.ReflectService) *http.ServeMux {
	h := NewReflectHandler(svc, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/reflect", h.Reflect)
	mux.HandleFunc("GET /api/threads/{id}/sessions", h.ListThreadSessions)
	mux.HandleFunc("GET /health", HealthCheck)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestReflect_OK(t *testing.T) {
	svc := &stubReflectService{resp: &services.ReflectResponse{
		Document: models.NewDocument(models.Block{ID: "b1", Content: "y"}),
	}}
	body := `{"thread_id":"t1","prompt":"fix","document":{"blocks":[{"id":"b1","content":"x"}]}}`
	rec := httptest.NewRecorder()

	newMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reflect", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"document":{"blocks":[{"id":"b1","content":"y"}]}}`, rec.Body.String())
	assert.Equal(t, "t1", svc.got.ThreadID)
	assert.Equal(t, "fix", svc.got.Prompt)
	assert.Equal(t, []models.Block{{ID: "b1", Content: "x"}}, svc.got.Document.Blocks)
}

func TestReflect_UserIDComesFromAuthContext(t *testing.T) {
	svc := &stubReflectService{resp: &services.ReflectResponse{}}
	body := `{"prompt":"fix","user_id":"spoofed","document":{"blocks":[]}}`
	req := httputil.WithUserID(httptest.NewRequest(http.MethodPost, "/api/reflect", strings.NewReader(body)), "user-123")
	rec := httptest.NewRecorder()

	newMux(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", svc.got.UserID)
}

func TestReflect_InvalidJSON(t *testing.T) {
	svc := &stubReflectService{}
	rec := httptest.NewRecorder()

	newMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reflect", strings.NewReader(`{"prompt":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.got)
}

func TestReflect_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"duplicate ids", &domain.InvalidDocumentError{DuplicateIDs: []string{"b1"}}, http.StatusBadRequest},
		{"validation", fmt.Errorf("%w: prompt: cannot be blank", domain.ErrValidation), http.StatusBadRequest},
		{"adapter", &domain.AdapterError{Provider: "openai", Err: errors.New("502")}, http.StatusBadGateway},
		{"adapter timeout", &domain.AdapterTimeoutError{Provider: "openai", Timeout: time.Second}, http.StatusGatewayTimeout},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/reflect", strings.NewReader(`{"prompt":"p"}`))

			newMux(&stubReflectService{err: tt.err}).ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			body := decodeBody(t, rec)
			assert.EqualValues(t, tt.code, body["status"])
		})
	}
}

func TestReflect_DuplicateIDsExtras(t *testing.T) {
	svc := &stubReflectService{err: &domain.InvalidDocumentError{DuplicateIDs: []string{"b1", "b3"}}}
	rec := httptest.NewRecorder()

	newMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reflect", strings.NewReader(`{"prompt":"p"}`)))

	body := decodeBody(t, rec)
	assert.Equal(t, []interface{}{"b1", "b3"}, body["duplicate_ids"])
}

func TestListThreadSessions(t *testing.T) {
	svc := &stubReflectService{sessions: []llmModels.ReflectSession{{ID: "s1", ThreadID: "t1"}}}
	rec := httptest.NewRecorder()

	newMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/threads/t1/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", svc.threadID)
	body := decodeBody(t, rec)
	sessions, ok := body["sessions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, sessions, 1)
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()

	newMux(&stubReflectService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestModelsHandler_GetCapabilities(t *testing.T) {
	registry, err := capabilities.NewRegistry()
	require.NoError(t, err)

	cfg := &config.Config{LLMProvider: "openai", OpenAIBaseURL: config.DefaultOpenAIBaseURL}
	h := NewModelsHandler(cfg, discardLogger(), registry)
	rec := httptest.NewRecorder()

	h.GetCapabilities(rec, httptest.NewRequest(http.MethodGet, "/api/models/capabilities", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		DefaultProvider string             `json:"default_provider"`
		Providers       []ProviderResponse `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "openai", body.DefaultProvider)
	ids := make([]string, 0, len(body.Providers))
	for _, p := range body.Providers {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"lorem", "openai"}, ids, "anthropic is hidden without an API key")
	assert.Equal(t, "llama3.2:3b", body.Providers[1].Models[0].ID)
}
