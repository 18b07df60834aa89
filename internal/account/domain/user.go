package domain

import "time"

// Well-known role names. The default grant table in the access package is
// keyed on these.
const (
	RoleAdmin  = "admin"
	RoleAuthor = "author"
)

type User struct {
	ID           string
	Email        string     // unique, compared case-insensitively
	Name         string
	PasswordHash string     // argon2 encoded
	Roles        []string   // parsed from space-delimited storage
	VerifiedAt   *time.Time // set once an email OTP was confirmed (nullable)
	TwoFASecret  *string    // TOTP secret (nullable, base32 encoded)
	TwoFAEnabled *time.Time // timestamp when 2FA was enabled (nullable)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TwoFAProvisioning is returned when a user starts 2FA enrollment. The
// enabled flag stays off until the first code verifies.
type TwoFAProvisioning struct {
	Secret string `json:"secret"`  // Base32 encoded TOTP secret
	URI    string `json:"uri"`     // otpauth:// provisioning URI
	Issuer string `json:"issuer"`  // Application name embedded in the URI
	Email  string `json:"account"` // Account name embedded in the URI
}
