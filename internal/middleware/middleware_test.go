package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"reflector/internal/domain"
	"reflector/internal/domain/models"
	"reflector/internal/httputil"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (*models.SupabaseClaims, error) {
	if token != "good" {
		return nil, domain.ErrUnauthorized
	}
	claims := &models.SupabaseClaims{Role: "authenticated"}
	claims.Subject = "user-1"
	return claims, nil
}

func (stubVerifier) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthMiddleware(t *testing.T) {
	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = httputil.GetUserID(r)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AuthMiddleware(stubVerifier{}, discardLogger(), "/health")(next)

	tests := []struct {
		name     string
		method   string
		path     string
		header   string
		wantCode int
		wantUser string
	}{
		{"valid token", http.MethodPost, "/api/reflect", "Bearer good", http.StatusNoContent, "user-1"},
		{"lowercase scheme", http.MethodPost, "/api/reflect", "bearer good", http.StatusNoContent, "user-1"},
		{"missing header", http.MethodPost, "/api/reflect", "", http.StatusUnauthorized, ""},
		{"wrong scheme", http.MethodPost, "/api/reflect", "Basic good", http.StatusUnauthorized, ""},
		{"bad token", http.MethodPost, "/api/reflect", "Bearer bad", http.StatusUnauthorized, ""},
		{"public path", http.MethodGet, "/health", "", http.StatusNoContent, ""},
		{"preflight", http.MethodOptions, "/api/reflect", "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
