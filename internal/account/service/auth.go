package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/aussiebroadwan/accountd/pkg/cryptox"
	"github.com/aussiebroadwan/accountd/pkg/jwtx"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and wrong
	// TOTP code alike so login failures never leak which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTOTPRequired tells the client to re-submit with a TOTP code.
	ErrTOTPRequired = errors.New("TOTP code required")
)

// AuthService authenticates credentials and mints access tokens. It is a
// resource server concern only; token verification happens in the transport
// middleware.
type AuthService struct {
	Store  store.Store
	Signer *jwtx.Signer
	TwoFA  *TwoFAService
}

// Login verifies email + password (+ TOTP code when the account has 2FA
// enabled) and returns a signed access token alongside the user record.
func (s *AuthService) Login(ctx context.Context, emailAddr, password, totpCode string) (string, domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.User{}, ErrInvalidCredentials
		}
		return "", domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return "", domain.User{}, ErrInvalidCredentials
	}

	if user.TwoFAEnabled != nil {
		if totpCode == "" {
			return "", domain.User{}, ErrTOTPRequired
		}
		ok, err := s.TwoFA.VerifyCode(ctx, user.ID, totpCode)
		if err != nil {
			return "", domain.User{}, fmt.Errorf("failed to verify TOTP code: %w", err)
		}
		if !ok {
			return "", domain.User{}, ErrInvalidCredentials
		}
	}

	token, err := s.Signer.Mint(user.ID, user.Roles)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("failed to mint access token: %w", err)
	}

	return token, user, nil
}
