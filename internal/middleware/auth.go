// Package middleware provides HTTP middleware for the invoicing API
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bgfactura/invoicing/internal/cache"
	"github.com/bgfactura/invoicing/internal/errors"
	internalhttputil "github.com/bgfactura/invoicing/internal/httputil"
	"github.com/bgfactura/invoicing/internal/logging"
)

// Authenticator resolves a bearer token to the caller's scope.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (cache.Scope, error)
}

// AuthMiddleware provides bearer token authentication
type AuthMiddleware struct {
	auth      Authenticator
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(auth Authenticator, logger *logging.Logger, skipPaths []string) *AuthMiddleware {
	if logger == nil {
		logger = logging.NewDefault("auth-middleware")
	}
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	return &AuthMiddleware{
		auth:      auth,
		logger:    logger,
		skipPaths: skip,
	}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, errors.Unauthorized("Access token required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			m.respondError(w, r, errors.Unauthorized("Invalid Authorization header format"))
			return
		}

		scope, err := m.auth.Authenticate(r.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		ctx := logging.WithUserID(r.Context(), scope.UserID)
		if scope.HasCompany() {
			ctx = logging.WithCompanyID(ctx, scope.CompanyID)
		}

		m.logger.WithContext(ctx).Debug("Authentication successful")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respondError sends an error response
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("Authentication failed", err)
	}

	internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)

	m.logger.LogSecurityEvent(r.Context(), "authentication_failed", map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
		"reason": serviceErr.Message,
	})
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) int64 {
	return logging.GetUserID(ctx)
}

// GetCompanyID extracts the company scope from context
func GetCompanyID(ctx context.Context) (int64, bool) {
	return logging.GetCompanyID(ctx)
}

// RequireUserID middleware ensures user ID is present in context
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == 0 {
			internalhttputil.Unauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCompany rejects callers that have not registered a company yet.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetCompanyID(r.Context()); !ok {
			internalhttputil.WriteError(w, r, errors.Validation("Company profile required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
