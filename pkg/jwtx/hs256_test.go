package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/accountd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerify(t *testing.T) {
	signer := &jwtx.Signer{Secret: []byte("test-secret"), Issuer: "accountd"}
	verifier := &jwtx.Verifier{Secret: []byte("test-secret"), Issuer: "accountd"}

	raw, err := signer.Mint("user-1", []string{"admin", "author"})
	require.NoError(t, err)

	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, []string{"admin", "author"}, claims.Roles)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := &jwtx.Signer{Secret: []byte("secret-a"), Issuer: "accountd"}
	verifier := &jwtx.Verifier{Secret: []byte("secret-b"), Issuer: "accountd"}

	raw, err := signer.Mint("user-1", nil)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	signer := &jwtx.Signer{Secret: []byte("secret"), Issuer: "someone-else"}
	verifier := &jwtx.Verifier{Secret: []byte("secret"), Issuer: "accountd"}

	raw, err := signer.Mint("user-1", nil)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerifyRejectsExpired(t *testing.T) {
	signer := &jwtx.Signer{Secret: []byte("secret"), Issuer: "accountd", TTL: -time.Minute}
	verifier := &jwtx.Verifier{Secret: []byte("secret"), Issuer: "accountd"}

	// A negative TTL must not fall back to the default; the token has to come
	// out of Mint already expired.
	raw, err := signer.Mint("user-1", nil)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.Error(t, err)

	// And the default window still applies when TTL is left zero.
	live, err := (&jwtx.Signer{Secret: []byte("secret"), Issuer: "accountd"}).Mint("user-1", nil)
	require.NoError(t, err)
	claims, err := verifier.Verify(live)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(jwtx.DefaultAccessTokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	verifier := &jwtx.Verifier{Secret: []byte("secret"), Issuer: "accountd"}

	_, err := verifier.Verify("not.a.token")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
