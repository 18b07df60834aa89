// Package jwtx mints and verifies the HS256 bearer tokens accountd accepts.
// The account service is a resource server, not an OAuth2 issuer: tokens
// carry the subject's id and role set and nothing else.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired   = errors.New("jwtx: token expired")
	ErrIssuer    = errors.New("jwtx: issuer mismatch")
	ErrMalformed = errors.New("jwtx: malformed token")
)

// Claims are the JWT claims accountd issues and consumes. Roles drive the
// authorization decision engine; everything else is standard registered claims.
type Claims struct {
	Roles []string `json:"roles,omitempty"`

	jwt.RegisteredClaims
}

// ValidateExpiry checks the exp claim against the current time.
func (c *Claims) ValidateExpiry() error {
	if c.ExpiresAt == nil || time.Now().After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}

// ValidateIssuer checks the iss claim, skipping the check when expected is empty.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}
