package service

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// qrImageSize is the pixel width/height of rendered provisioning QR codes.
const qrImageSize = 256

var (
	ErrInvalidTOTPCode     = errors.New("invalid TOTP code")
	ErrTwoFANotProvisioned = errors.New("2FA not provisioned - call Generate first")
	ErrTwoFAAlreadyEnabled = errors.New("2FA already enabled for this user")
)

// TwoFAService drives the per-user 2FA state machine:
// no secret -> provisioned (secret stored, disabled) -> enabled.
// Enable is the only writer of the enabled flag, and it only fires after a
// code verified against the stored secret.
type TwoFAService struct {
	Store  store.Store
	Issuer string // Issuer name embedded in provisioning URIs (e.g., "accountd")
}

// Generate creates a fresh TOTP secret for the user and persists it.
// This does NOT enable 2FA yet - the user must verify a code first.
func (s *TwoFAService) Generate(ctx context.Context, userID string) (domain.TwoFAProvisioning, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.TwoFAProvisioning{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TwoFAEnabled != nil {
		return domain.TwoFAProvisioning{}, ErrTwoFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.TwoFAProvisioning{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	// Store the secret (but don't enable 2FA yet). Re-provisioning before
	// enablement simply replaces the previous secret.
	if err := s.Store.Users().UpdateTwoFASecret(ctx, userID, key.Secret()); err != nil {
		return domain.TwoFAProvisioning{}, fmt.Errorf("failed to store 2FA secret: %w", err)
	}

	return domain.TwoFAProvisioning{
		Secret: key.Secret(),
		URI:    key.URL(),
		Issuer: s.Issuer,
		Email:  user.Email,
	}, nil
}

// RenderQRCode encodes a provisioning URI as a PNG QR code and streams it to
// the caller's writer. Encoding or write failures propagate.
func (s *TwoFAService) RenderQRCode(w io.Writer, provisioningURI string) error {
	key, err := otp.NewKeyFromURL(provisioningURI)
	if err != nil {
		return fmt.Errorf("failed to parse provisioning URI: %w", err)
	}

	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return fmt.Errorf("failed to render QR code: %w", err)
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to write QR image: %w", err)
	}
	return nil
}

// VerifyCode checks a submitted code against the user's stored secret with
// the standard one-step clock skew tolerance. A user with no stored secret
// gets a plain negative result, not an error.
func (s *TwoFAService) VerifyCode(ctx context.Context, userID string, code string) (bool, error) {
	_, secret, err := s.Store.Users().GetTwoFAInfo(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get 2FA info: %w", err)
	}

	if secret == nil || *secret == "" {
		return false, nil
	}

	return totp.Validate(code, *secret), nil
}

// Enable verifies a code and, only on success, flips the enabled flag.
// A wrong code leaves all state untouched.
func (s *TwoFAService) Enable(ctx context.Context, userID string, code string) (domain.User, error) {
	enabled, secret, err := s.Store.Users().GetTwoFAInfo(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to get 2FA info: %w", err)
	}

	if secret == nil || *secret == "" {
		return domain.User{}, ErrTwoFANotProvisioned
	}
	if enabled != nil {
		return domain.User{}, ErrTwoFAAlreadyEnabled
	}

	if !totp.Validate(code, *secret) {
		return domain.User{}, ErrInvalidTOTPCode
	}

	if err := s.Store.Users().EnableTwoFA(ctx, userID); err != nil {
		return domain.User{}, fmt.Errorf("failed to enable 2FA: %w", err)
	}

	return s.Store.Users().GetUserByID(ctx, userID)
}
