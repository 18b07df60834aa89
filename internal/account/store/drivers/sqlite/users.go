package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/aussiebroadwan/accountd/internal/account/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, name, password_hash, roles, verified_at, twofa_secret, twofa_enabled, created_at, updated_at`

func scanUser(s interface{ Scan(...any) error }) (domain.User, error) {
	var row userRow
	err := s.Scan(
		&row.id, &row.email, &row.name, &row.passwordHash, &row.roles,
		&row.verifiedAt, &row.twofaSecret, &row.twofaEnabled,
		&row.createdAt, &row.updatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return row.toDomain(), nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	// email column is COLLATE NOCASE, so the comparison is case-insensitive.
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, roles, verified_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, joinRoles(u.Roles), u.VerifiedAt, now, now)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateName(ctx context.Context, userID string, name string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) UpdateRoles(ctx context.Context, userID string, roles []string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET roles = ?, updated_at = ? WHERE id = ?`,
		joinRoles(roles), time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, email string) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET verified_at = ?, updated_at = ? WHERE email = ? AND verified_at IS NULL`,
		now, now, email)
	return err
}

func (r *usersRepo) UpdateTwoFASecret(ctx context.Context, userID string, secret string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET twofa_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) EnableTwoFA(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET twofa_enabled = ?, updated_at = ? WHERE id = ?`,
		now, now, userID)
	return err
}

func (r *usersRepo) GetTwoFAInfo(ctx context.Context, userID string) (*time.Time, *string, error) {
	var enabled sql.NullTime
	var secret sql.NullString

	err := r.q.QueryRowContext(ctx,
		`SELECT twofa_enabled, twofa_secret FROM users WHERE id = ?`, userID).
		Scan(&enabled, &secret)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}

	return mapNullTimePtr(enabled), mapNullStringPtr(secret), nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
