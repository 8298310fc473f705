package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/bgfactura/invoicing/internal/cache"
	"github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

type stubAuthenticator struct {
	scopes map[string]cache.Scope
	calls  int
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (cache.Scope, error) {
	s.calls++
	scope, ok := s.scopes[token]
	if !ok {
		return cache.Scope{}, errors.InvalidToken(nil)
	}
	return scope, nil
}

func newStub() *stubAuthenticator {
	return &stubAuthenticator{scopes: map[string]cache.Scope{
		"owner":    {UserID: 7, CompanyID: 3, Email: "owner@alfa.bg"},
		"newcomer": {UserID: 8, Email: "new@alfa.bg"},
	}}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewAuthMiddleware(t *testing.T) {
	logger := logging.NewDiscard()
	middleware := NewAuthMiddleware(newStub(), logger, []string{"/api/health", "/metrics"})

	if middleware == nil {
		t.Fatal("NewAuthMiddleware() returned nil")
	}
	if middleware.logger != logger {
		t.Error("logger not set correctly")
	}
	if len(middleware.skipPaths) != 2 {
		t.Errorf("skipPaths length = %d, want 2", len(middleware.skipPaths))
	}
	if !middleware.skipPaths["/api/health"] {
		t.Error("skipPaths does not contain /api/health")
	}
}

func TestAuthMiddleware_Handler_SkipPaths(t *testing.T) {
	stub := newStub()
	handler := NewAuthMiddleware(stub, logging.NewDiscard(), []string{"/api/health"}).Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if stub.calls != 0 {
		t.Errorf("authenticator called %d times on a skipped path", stub.calls)
	}
}

func TestAuthMiddleware_Handler_MissingAuthHeader(t *testing.T) {
	handler := NewAuthMiddleware(newStub(), logging.NewDiscard(), nil).Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := gjson.Get(rec.Body.String(), "error").String(); got != "Access token required" {
		t.Errorf("error = %q", got)
	}
}

func TestAuthMiddleware_Handler_InvalidAuthHeaderFormat(t *testing.T) {
	handler := NewAuthMiddleware(newStub(), logging.NewDiscard(), nil).Handler(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"wrong prefix", "Basic token123"},
		{"empty token", "Bearer "},
		{"unknown token", "Bearer forged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/clients", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_Handler_PopulatesScope(t *testing.T) {
	var userID, companyID int64
	var hasCompany bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = GetUserID(r.Context())
		companyID, hasCompany = GetCompanyID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := NewAuthMiddleware(newStub(), logging.NewDiscard(), nil).Handler(inner)

	req := httptest.NewRequest("GET", "/api/clients", nil)
	req.Header.Set("Authorization", "bearer owner")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if userID != 7 || companyID != 3 || !hasCompany {
		t.Errorf("scope = (%d, %d, %v), want (7, 3, true)", userID, companyID, hasCompany)
	}
}

func TestAuthMiddleware_Handler_PreflightPassesThrough(t *testing.T) {
	handler := NewAuthMiddleware(newStub(), logging.NewDiscard(), nil).Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/clients", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireCompany(t *testing.T) {
	auth := NewAuthMiddleware(newStub(), logging.NewDiscard(), nil)
	handler := auth.Handler(RequireCompany(okHandler()))

	tests := []struct {
		token string
		want  int
	}{
		{"owner", http.StatusOK},
		{"newcomer", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/documents", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireUserID(t *testing.T) {
	handler := RequireUserID(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/auth/profile", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	req = req.WithContext(logging.WithUserID(req.Context(), 5))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
}
