package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/aussiebroadwan/accountd/internal/account/email"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/aussiebroadwan/accountd/pkg/cryptox"
)

const (
	otpCodeLength = 6
	// DefaultOTPTTL bounds how long an issued code stays verifiable.
	DefaultOTPTTL = 5 * time.Minute
)

// otpFormat is checked before touching storage; anything else is a plain
// negative result.
var otpFormat = regexp.MustCompile(`^[0-9]{6}$`)

// OTPService issues and verifies short-lived email-bound passcodes. Only the
// code's fingerprint is persisted; the plaintext exists in the issuing
// response and the delivered email, nowhere else.
type OTPService struct {
	Store   store.Store
	Sender  email.Sender
	AppName string        // used in the email subject/body
	TTL     time.Duration // falls back to DefaultOTPTTL when zero
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultOTPTTL
	}
	return s.TTL
}

// Issue generates a fresh code for the address, superseding any prior live
// code, and delivers it by email. Two near-simultaneous issues for the same
// address resolve last-write-wins: only the newest code verifies.
func (s *OTPService) Issue(ctx context.Context, address string) (domain.OTPCode, error) {
	address = normalizeEmail(address)

	code, err := cryptox.GenerateNumericCode(otpCodeLength)
	if err != nil {
		return domain.OTPCode{}, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl())

	if err := s.Store.OTPCodes().UpsertOTPCode(ctx, address, cryptox.FingerprintToken(code), expiresAt); err != nil {
		return domain.OTPCode{}, fmt.Errorf("failed to store OTP code: %w", err)
	}

	subject, htmlBody, textBody := email.OTPMessage(s.AppName, code, s.ttl())
	if err := s.Sender.Send(address, subject, htmlBody, textBody); err != nil {
		return domain.OTPCode{}, fmt.Errorf("failed to deliver OTP code: %w", err)
	}

	return domain.OTPCode{
		Email:     address,
		Code:      code,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// Verify checks a submitted code and consumes the record on success. Missing
// record, expired record, malformed or wrong code all yield the same plain
// false - callers cannot distinguish why a code was rejected.
func (s *OTPService) Verify(ctx context.Context, address, code string) (bool, error) {
	if !otpFormat.MatchString(code) {
		return false, nil
	}

	return s.Store.OTPCodes().ConsumeOTPCode(
		ctx,
		normalizeEmail(address),
		cryptox.FingerprintToken(code),
		time.Now().UTC(),
	)
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
