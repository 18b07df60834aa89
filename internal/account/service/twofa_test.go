package service

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTwoFAGenerate(t *testing.T) {
	st := newTestStore(t)
	svc := &TwoFAService{Store: st, Issuer: "accountd-test"}
	user := createTestUser(t, st, "totp@example.com", domain.RoleAuthor)

	prov, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)

	require.NotEmpty(t, prov.Secret)
	require.Equal(t, "accountd-test", prov.Issuer)
	require.Equal(t, "totp@example.com", prov.Email)
	require.True(t, strings.HasPrefix(prov.URI, "otpauth://totp/"))
	require.Contains(t, prov.URI, prov.Secret)

	// Secret is stored but 2FA stays disabled until Enable succeeds.
	stored, err := st.Users().GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TwoFASecret)
	require.Equal(t, prov.Secret, *stored.TwoFASecret)
	require.Nil(t, stored.TwoFAEnabled)
}

func TestTwoFAGenerateReplacesSecretBeforeEnable(t *testing.T) {
	st := newTestStore(t)
	svc := &TwoFAService{Store: st, Issuer: "accountd-test"}
	user := createTestUser(t, st, "replace@example.com", domain.RoleAuthor)

	first, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)

	require.NotEqual(t, first.Secret, second.Secret)

	// Only the latest secret verifies.
	code, err := totp.GenerateCode(second.Secret, time.Now())
	require.NoError(t, err)
	ok, err := svc.VerifyCode(context.Background(), user.ID, code)
	require.NoError(t, err)
	require.True(t, ok)

	stale, err := totp.GenerateCode(first.Secret, time.Now())
	require.NoError(t, err)
	if stale != code {
		ok, err = svc.VerifyCode(context.Background(), user.ID, stale)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestTwoFAVerifyCode(t *testing.T) {
	st := newTestStore(t)
	svc := &TwoFAService{Store: st, Issuer: "accountd-test"}
	user := createTestUser(t, st, "verify@example.com", domain.RoleAuthor)

	t.Run("no secret provisioned", func(t *testing.T) {
		ok, err := svc.VerifyCode(context.Background(), user.ID, "123456")
		require.NoError(t, err)
		require.False(t, ok)
	})

	prov, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)

	t.Run("valid code", func(t *testing.T) {
		code, err := totp.GenerateCode(prov.Secret, time.Now())
		require.NoError(t, err)

		ok, err := svc.VerifyCode(context.Background(), user.ID, code)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("wrong code", func(t *testing.T) {
		ok, err := svc.VerifyCode(context.Background(), user.ID, "000000")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("garbage code", func(t *testing.T) {
		ok, err := svc.VerifyCode(context.Background(), user.ID, "not-a-code")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestTwoFAEnable(t *testing.T) {
	st := newTestStore(t)
	svc := &TwoFAService{Store: st, Issuer: "accountd-test"}
	user := createTestUser(t, st, "enable@example.com", domain.RoleAuthor)

	t.Run("not provisioned", func(t *testing.T) {
		_, err := svc.Enable(context.Background(), user.ID, "123456")
		require.ErrorIs(t, err, ErrTwoFANotProvisioned)
	})

	prov, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)

	t.Run("wrong code leaves state untouched", func(t *testing.T) {
		_, err := svc.Enable(context.Background(), user.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)

		stored, err := st.Users().GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.Nil(t, stored.TwoFAEnabled)
	})

	t.Run("valid code enables", func(t *testing.T) {
		code, err := totp.GenerateCode(prov.Secret, time.Now())
		require.NoError(t, err)

		enabled, err := svc.Enable(context.Background(), user.ID, code)
		require.NoError(t, err)
		require.NotNil(t, enabled.TwoFAEnabled)
	})

	t.Run("already enabled", func(t *testing.T) {
		code, err := totp.GenerateCode(prov.Secret, time.Now())
		require.NoError(t, err)

		_, err = svc.Enable(context.Background(), user.ID, code)
		require.ErrorIs(t, err, ErrTwoFAAlreadyEnabled)

		_, err = svc.Generate(context.Background(), user.ID)
		require.ErrorIs(t, err, ErrTwoFAAlreadyEnabled)
	})
}

func TestTwoFARenderQRCode(t *testing.T) {
	st := newTestStore(t)
	svc := &TwoFAService{Store: st, Issuer: "accountd-test"}
	user := createTestUser(t, st, "qr@example.com", domain.RoleAuthor)

	prov, err := svc.Generate(context.Background(), user.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.RenderQRCode(&buf, prov.URI))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, qrImageSize, img.Bounds().Dx())
	require.Equal(t, qrImageSize, img.Bounds().Dy())

	t.Run("bad URI", func(t *testing.T) {
		require.Error(t, svc.RenderQRCode(&bytes.Buffer{}, "://not-a-uri"))
	})
}
