// Package auth is the bearer-token gate in front of the store. It never
// reaches into the store itself; handlers consume the identity it
// attaches to the request context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken means the request carried no usable bearer token.
	ErrNoToken = errors.New("unauthorized")

	// ErrBadToken means the token was present but invalid or expired.
	ErrBadToken = errors.New("forbidden")
)

// Claims is the decoded identity carried by a token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier issues and verifies HS256 tokens.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

// NewVerifier creates a verifier with the given signing secret and
// token lifetime.
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// IssueToken signs a token for the given email.
func (v *Verifier) IssueToken(email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string and returns its claims. Any
// validation failure (bad signature, expiry, wrong method) maps to
// ErrBadToken.
func (v *Verifier) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrBadToken
	}
	if claims.Email == "" && claims.Subject != "" {
		claims.Email = claims.Subject
	}
	return claims, nil
}
