// Package middleware provides the access gate: token verification, role
// checks and self-access checks applied in front of handlers.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/emphub/workforce/internal/auth"
	apperrors "github.com/emphub/workforce/internal/errors"
	"github.com/emphub/workforce/internal/httputil"
	"github.com/emphub/workforce/pkg/logger"
)

type contextKey string

const (
	claimsKey  contextKey = "claims"
	traceIDKey contextKey = "trace_id"
)

// Authenticator verifies bearer tokens and attaches decoded claims to the
// request context.
type Authenticator struct {
	tokens *auth.TokenService
	log    *logger.Logger
}

// NewAuthenticator creates the token verification middleware.
func NewAuthenticator(tokens *auth.TokenService, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.NewDefault("middleware")
	}
	return &Authenticator{tokens: tokens, log: log}
}

// Handler returns the middleware handler. A missing header, a malformed
// header and an unverifiable token all produce the same Unauthorized
// response.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.Unauthorized(w, "")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			httputil.Unauthorized(w, "")
			return
		}

		claims, err := a.tokens.Verify(parts[1])
		if err != nil {
			a.log.WithError(err).WithFields(map[string]interface{}{
				"path":   r.URL.Path,
				"method": r.Method,
			}).Warn("token verification failed")
			httputil.WriteError(w, apperrors.Unauthorized(""))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFrom extracts the decoded token claims from the context, or nil.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// CallerEmail returns the authenticated caller's email, or "".
func CallerEmail(ctx context.Context) string {
	if claims := ClaimsFrom(ctx); claims != nil {
		return claims.Email
	}
	return ""
}

// WithClaims returns a context carrying the given claims. Used by tests.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
