package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emphub/workforce/internal/auth"
)

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService("middleware-test-secret", "")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestAuthenticatorRejectsMissingToken(t *testing.T) {
	authn := NewAuthenticator(newTestTokens(t), nil)
	handler := authn.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc123"},
		{"bearer empty", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.Code)
			}
		})
	}
}

func TestAuthenticatorPutsClaimsInContext(t *testing.T) {
	tokens := newTestTokens(t)
	authn := NewAuthenticator(tokens, nil)

	token, err := tokens.Issue("carol@example.com", "employee")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	called := false
	handler := authn.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if got := CallerEmail(r.Context()); got != "carol@example.com" {
			t.Fatalf("expected caller email in context, got %q", got)
		}
		claims := ClaimsFrom(r.Context())
		if claims == nil || claims.Role != "employee" {
			t.Fatalf("expected claims in context, got %+v", claims)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if !called {
		t.Fatalf("handler not called, status %d", resp.Code)
	}
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAuthenticatorRejectsTokenFromDifferentKey(t *testing.T) {
	other, err := auth.NewTokenService("different-secret", "")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	foreign, err := other.Issue("carol@example.com", "employee")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	authn := NewAuthenticator(newTestTokens(t), nil)
	handler := authn.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
