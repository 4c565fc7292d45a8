package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/emphub/workforce/internal/errors"
)

const testSecret = "test-signing-secret"

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, "")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.Issue("Alice@Example.com", "hr")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", claims.Email)
	}
	if claims.Role != "hr" {
		t.Fatalf("expected role hr, got %q", claims.Role)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl > TokenTTL || ttl < TokenTTL-time.Minute {
		t.Fatalf("expected expiry about %v out, got %v", TokenTTL, ttl)
	}
}

func TestIssueRequiresEmail(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Issue("", "employee"); err == nil {
		t.Fatal("expected error for empty email")
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("", ""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestVerifyRejectsTamperedAndForeignTokens(t *testing.T) {
	svc := newTestService(t)

	good, err := svc.Issue("bob@example.com", "employee")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	expired := signToken(t, testSecret, jwt.SigningMethodHS256, Claims{
		Email: "bob@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	wrongKey := signToken(t, "other-secret", jwt.SigningMethodHS256, Claims{
		Email: "bob@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered", good + "x"},
		{"expired", expired},
		{"wrong key", wrongKey},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Verify(tc.token)
			if err == nil {
				t.Fatal("expected verification failure")
			}
			svcErr := apperrors.GetServiceError(err)
			if svcErr == nil || svcErr.Code != apperrors.CodeUnauthorized {
				t.Fatalf("expected uniform unauthorized error, got %v", err)
			}
		})
	}
}

func TestVerifyRejectsUnexpectedSigningMethod(t *testing.T) {
	svc := newTestService(t)

	// alg=none tokens must never pass.
	unsigned := signNoneToken(t, Claims{
		Email: "bob@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if _, err := svc.Verify(unsigned); err == nil {
		t.Fatal("expected rejection of unsigned token")
	}
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func signNoneToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if !strings.HasSuffix(token, ".") {
		t.Fatalf("unexpected none token shape: %s", token)
	}
	return token
}
