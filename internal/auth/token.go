// Package auth issues and verifies the signed identity tokens used by the
// access gate.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/emphub/workforce/internal/errors"
)

// TokenTTL is the fixed validity window. There is no refresh mechanism;
// expiry forces re-authentication.
const TokenTTL = 1 * time.Hour

// Claims carried by an identity token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 identity tokens. It is stateless.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService creates a token service with the fixed one-hour TTL.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("token signing secret required")
	}
	if issuer == "" {
		issuer = "workforce"
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: TokenTTL}, nil
}

// Issue produces a signed token for the given claims.
func (s *TokenService) Issue(email, role string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperrors.Validation("email is required")
	}

	now := time.Now()
	claims := &Claims{
		Email: strings.ToLower(email),
		Role:  strings.TrimSpace(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the signature and expiry of a token and returns its
// claims. Every failure mode collapses to the same Unauthorized error so the
// caller cannot distinguish a bad signature from an expired token.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, apperrors.InvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, apperrors.InvalidToken(nil)
	}
	return claims, nil
}
