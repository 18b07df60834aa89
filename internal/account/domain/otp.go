package domain

import "time"

// OTPCode is an email-bound one-time passcode. At most one live code exists
// per email: issuing a new one supersedes the old record.
//
// Code carries the plaintext digits only on the issuing path; stores persist
// a fingerprint, never the code itself.
type OTPCode struct {
	Email     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}
