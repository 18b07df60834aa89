package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is how long a minted bearer token stays valid.
const DefaultAccessTokenTTL = 15 * time.Minute

// Signer mints HS256 bearer tokens for authenticated users.
type Signer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration // falls back to DefaultAccessTokenTTL when zero
}

// Mint returns a signed token for the subject with the given role set. Only a
// zero TTL triggers the default; a negative TTL mints an already-expired token.
func (s *Signer) Mint(subject string, roles []string) (string, error) {
	ttl := s.TTL
	if ttl == 0 {
		ttl = DefaultAccessTokenTTL
	}

	now := time.Now().UTC()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verifier validates tokens minted by a Signer sharing the same secret.
type Verifier struct {
	Secret []byte
	Issuer string
}

// Verify parses and validates a raw token string, returning its claims.
// Signature, algorithm, expiry, and issuer are all checked.
func (v *Verifier) Verify(raw string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrMalformed, t.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(v.Issuer); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
