package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	OTPCodes() OTPCodes

	ApplyMigrations() error

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back, otherwise it
	// is committed. This is the recommended way to handle multi-step writes.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store scoped to a single transaction.
type Tx interface {
	Users() Users
	OTPCodes() OTPCodes
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by email, case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns a page of users ordered by creation date (newest first).
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int64, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateName mutates the display name and bumps updated_at.
	UpdateName(ctx context.Context, userID string, name string) error

	// UpdateRoles replaces the role set and bumps updated_at.
	UpdateRoles(ctx context.Context, userID string, roles []string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser removes a user record.
	DeleteUser(ctx context.Context, userID string) error

	// MarkEmailVerified stamps verified_at for the unverified user owning
	// this email. A no-op (nil, never ErrNotFound) when no such account
	// exists or the email is already verified, so an earlier verification
	// timestamp is never overwritten.
	MarkEmailVerified(ctx context.Context, email string) error

	// UpdateTwoFASecret sets the TOTP secret for a user. This is a single
	// atomic field update; the enabled flag is untouched.
	UpdateTwoFASecret(ctx context.Context, userID string, secret string) error

	// EnableTwoFA stamps twofa_enabled for a user. The sole writer of the
	// enabled flag is the 2FA service's Enable path.
	EnableTwoFA(ctx context.Context, userID string) error

	// GetTwoFAInfo returns the 2FA-related fields for a user.
	GetTwoFAInfo(ctx context.Context, userID string) (enabled *time.Time, secret *string, err error)

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type OTPCodes interface {
	// UpsertOTPCode stores a code fingerprint keyed by email, superseding any
	// prior live record for that address (last write wins).
	UpsertOTPCode(ctx context.Context, email, codeHash string, expiresAt time.Time) error

	// GetOTPCode returns the live record for an email, or ErrNotFound.
	// The returned Code field holds the fingerprint, not the plaintext.
	GetOTPCode(ctx context.Context, email string) (domain.OTPCode, error)

	// ConsumeOTPCode atomically deletes the record iff the fingerprint
	// matches and the record has not expired at the given instant. Returns
	// true only when a row was consumed; two concurrent callers cannot both
	// observe true for the same code.
	ConsumeOTPCode(ctx context.Context, email, codeHash string, now time.Time) (bool, error)

	// DeleteExpiredOTPCodes is housekeeping.
	DeleteExpiredOTPCodes(ctx context.Context) error
}
