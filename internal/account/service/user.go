package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/aussiebroadwan/accountd/pkg/cryptox"
	"github.com/aussiebroadwan/accountd/pkg/idx"
)

// ErrForbidden signals that the acting user is scoped to their own record and
// targeted someone else's.
var ErrForbidden = errors.New("forbidden: not the record owner")

// CreateUserParams carries everything needed for a new account. Password is
// plaintext here and hashed before it touches storage.
type CreateUserParams struct {
	Email    string
	Name     string
	Password string
	Roles    []string
}

// EditUserParams is a partial update. Nil fields are left untouched. Role
// changes are deliberately not part of this shape; they go through SetRoles
// so a profile edit can never carry a privilege escalation.
type EditUserParams struct {
	Name     *string
	Password *string
}

// UserService manages account records. Ownership enforcement lives here, not
// only in the transport layer: every mutating call that arrives with a
// non-nil owner is re-checked against the target record before any write.
type UserService struct {
	Store store.Store
}

// Create inserts a new account with the given roles. Returns
// store.ErrAlreadyExists when the email is taken.
func (s *UserService) Create(ctx context.Context, p CreateUserParams) (domain.User, error) {
	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u := domain.User{
		ID:           idx.New().String(),
		Email:        normalizeEmail(p.Email),
		Name:         p.Name,
		PasswordHash: hash,
		Roles:        p.Roles,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}

	return s.Store.Users().GetUserByID(ctx, u.ID)
}

// Register is self-service signup. New accounts always start as authors;
// there is no caller-controlled way to pick roles on this path.
func (s *UserService) Register(ctx context.Context, email, name, password string) (domain.User, error) {
	return s.Create(ctx, CreateUserParams{
		Email:    email,
		Name:     name,
		Password: password,
		Roles:    []string{domain.RoleAuthor},
	})
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
}

// List returns a page of users plus the total count.
func (s *UserService) List(ctx context.Context, opts domain.PageOptions) (domain.Page[domain.User], error) {
	opts = domain.ClampPage(opts.Limit, opts.Offset)

	var page domain.Page[domain.User]
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		users, err := tx.Users().ListUsers(ctx, opts.Limit, opts.Offset)
		if err != nil {
			return err
		}
		total, err := tx.Users().CountUsers(ctx)
		if err != nil {
			return err
		}
		page = domain.Page[domain.User]{
			Items:  users,
			Total:  total,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		}
		return nil
	})
	if err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return page, nil
}

// MarkVerified stamps verified_at on the account owning the email. Called
// after an OTP round-trip succeeds.
func (s *UserService) MarkVerified(ctx context.Context, email string) error {
	return s.Store.Users().MarkEmailVerified(ctx, normalizeEmail(email))
}

// EditOne applies a partial update to the target record. When owner is
// non-nil the caller was only granted own-scope access and the target must
// be the owner's record.
func (s *UserService) EditOne(ctx context.Context, id string, p EditUserParams, owner *domain.User) (domain.User, error) {
	current, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	if owner != nil && current.ID != owner.ID {
		return domain.User{}, ErrForbidden
	}

	var newHash string
	if p.Password != nil {
		newHash, err = cryptox.HashPassword(*p.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if p.Name != nil {
			if err := tx.Users().UpdateName(ctx, id, *p.Name); err != nil {
				return err
			}
		}
		if p.Password != nil {
			if err := tx.Users().UpdatePasswordHash(ctx, id, newHash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	return s.Store.Users().GetUserByID(ctx, id)
}

// SetRoles replaces the target's role set. There is no owner variant: role
// management is an unrestricted-grant operation only, and profile edits can
// never reach this.
func (s *UserService) SetRoles(ctx context.Context, id string, roles []string) (domain.User, error) {
	if _, err := s.Store.Users().GetUserByID(ctx, id); err != nil {
		return domain.User{}, err
	}

	if err := s.Store.Users().UpdateRoles(ctx, id, roles); err != nil {
		return domain.User{}, fmt.Errorf("failed to update roles: %w", err)
	}

	return s.Store.Users().GetUserByID(ctx, id)
}

// DeleteOne removes the target record, with the same ownership check as
// EditOne.
func (s *UserService) DeleteOne(ctx context.Context, id string, owner *domain.User) error {
	current, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	if owner != nil && current.ID != owner.ID {
		return ErrForbidden
	}

	return s.Store.Users().DeleteUser(ctx, id)
}
