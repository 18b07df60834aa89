package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
)

type otpCodesRepo struct {
	q querier
}

func (r *otpCodesRepo) UpsertOTPCode(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	// One live code per email: a fresh issue replaces whatever was there.
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO otp_codes (email, code_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			code_hash = excluded.code_hash,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		email, codeHash, expiresAt.UTC(), time.Now().UTC())
	return err
}

func (r *otpCodesRepo) GetOTPCode(ctx context.Context, email string) (domain.OTPCode, error) {
	var rec domain.OTPCode
	err := r.q.QueryRowContext(ctx,
		`SELECT email, code_hash, expires_at, created_at FROM otp_codes WHERE email = ?`,
		email).
		Scan(&rec.Email, &rec.Code, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		return domain.OTPCode{}, mapNotFound(err)
	}
	return rec, nil
}

// ConsumeOTPCode is the consume-once primitive: a single conditional DELETE
// so that two concurrent verifications of the same code cannot both succeed.
func (r *otpCodesRepo) ConsumeOTPCode(ctx context.Context, email, codeHash string, now time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE email = ? AND code_hash = ? AND expires_at > ?`,
		email, codeHash, now.UTC())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *otpCodesRepo) DeleteExpiredOTPCodes(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
