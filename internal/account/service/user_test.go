package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/aussiebroadwan/accountd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestUserCreate(t *testing.T) {
	st := newTestStore(t)
	svc := &UserService{Store: st}

	user, err := svc.Create(context.Background(), CreateUserParams{
		Email:    "Alice@Example.com",
		Name:     "Alice",
		Password: "hunter2hunter2",
		Roles:    []string{domain.RoleAdmin},
	})
	require.NoError(t, err)

	require.NotEmpty(t, user.ID)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, []string{domain.RoleAdmin}, user.Roles)
	require.Nil(t, user.VerifiedAt)
	require.False(t, user.CreatedAt.IsZero())

	// Password is stored hashed, never plaintext.
	require.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	require.NoError(t, cryptox.VerifyPassword("hunter2hunter2", user.PasswordHash))

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateUserParams{
			Email:    "ALICE@example.com",
			Name:     "Impostor",
			Password: "something else",
			Roles:    []string{domain.RoleAuthor},
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestUserRegisterAssignsAuthorRole(t *testing.T) {
	st := newTestStore(t)
	svc := &UserService{Store: st}

	user, err := svc.Register(context.Background(), "new@example.com", "Newbie", "a decent password")
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleAuthor}, user.Roles)
}

func TestUserList(t *testing.T) {
	st := newTestStore(t)
	svc := &UserService{Store: st}

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		createTestUser(t, st, email, domain.RoleAuthor)
	}

	page, err := svc.List(context.Background(), domain.PageOptions{Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.EqualValues(t, 3, page.Total)
	require.Equal(t, 2, page.Limit)

	rest, err := svc.List(context.Background(), domain.PageOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.EqualValues(t, 3, rest.Total)

	t.Run("clamps bad options", func(t *testing.T) {
		page, err := svc.List(context.Background(), domain.PageOptions{Limit: -5, Offset: -1})
		require.NoError(t, err)
		require.Equal(t, domain.DefaultPageSize, page.Limit)
		require.Equal(t, 0, page.Offset)
	})
}

func TestUserEditOne(t *testing.T) {
	st := newTestStore(t)
	svc := &UserService{Store: st}

	target := createTestUser(t, st, "target@example.com", domain.RoleAuthor)
	other := createTestUser(t, st, "other@example.com", domain.RoleAuthor)

	newName := "Renamed"
	newPassword := "a brand new password"

	t.Run("admin edits anyone", func(t *testing.T) {
		updated, err := svc.EditOne(context.Background(), target.ID, EditUserParams{
			Name: &newName,
		}, nil)
		require.NoError(t, err)
		require.Equal(t, "Renamed", updated.Name)
	})

	t.Run("owner edits own record", func(t *testing.T) {
		ownName := "Self Edit"
		updated, err := svc.EditOne(context.Background(), other.ID, EditUserParams{
			Name:     &ownName,
			Password: &newPassword,
		}, &other)
		require.NoError(t, err)
		require.Equal(t, "Self Edit", updated.Name)
		require.NoError(t, cryptox.VerifyPassword(newPassword, updated.PasswordHash))
	})

	t.Run("edit never touches roles", func(t *testing.T) {
		updated, err := svc.EditOne(context.Background(), other.ID, EditUserParams{
			Name: &newName,
		}, &other)
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleAuthor}, updated.Roles)
	})

	t.Run("owner cannot edit someone else", func(t *testing.T) {
		_, err := svc.EditOne(context.Background(), target.ID, EditUserParams{
			Name: &newName,
		}, &other)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.EditOne(context.Background(), "01K0000000000000000000TEST", EditUserParams{
			Name: &newName,
		}, nil)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUserSetRoles(t *testing.T) {
	st := newTestStore(t)
	svc := &UserService{Store: st}

	user := createTestUser(t, st, "promote@example.com", domain.RoleAuthor)

	updated, err := svc.SetRoles(context.Background(), user.ID, []string{domain.RoleAdmin, domain.RoleAuthor})
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleAdmin, domain.RoleAuthor}, updated.Roles)

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.SetRoles(context.Background(), "01K0000000000000000000TEST", []string{domain.RoleAdmin})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUserDeleteOne(t *testing.T) {
	st := newTestStore(t)
	svc := &UserService{Store: st}

	target := createTestUser(t, st, "victim@example.com", domain.RoleAuthor)
	other := createTestUser(t, st, "bystander@example.com", domain.RoleAuthor)

	t.Run("owner cannot delete someone else", func(t *testing.T) {
		err := svc.DeleteOne(context.Background(), target.ID, &other)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("owner deletes own record", func(t *testing.T) {
		require.NoError(t, svc.DeleteOne(context.Background(), other.ID, &other))

		_, err := svc.GetByID(context.Background(), other.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("admin deletes anyone", func(t *testing.T) {
		require.NoError(t, svc.DeleteOne(context.Background(), target.ID, nil))
	})

	t.Run("unknown user", func(t *testing.T) {
		err := svc.DeleteOne(context.Background(), target.ID, nil)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUserMarkVerified(t *testing.T) {
	st := newTestStore(t)
	svc := &UserService{Store: st}

	user := createTestUser(t, st, "verifyme@example.com", domain.RoleAuthor)
	require.Nil(t, user.VerifiedAt)

	require.NoError(t, svc.MarkVerified(context.Background(), "VerifyMe@Example.com"))

	stored, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerifiedAt)

	t.Run("unknown email is a no-op", func(t *testing.T) {
		require.NoError(t, svc.MarkVerified(context.Background(), "nobody@example.com"))
	})

	t.Run("re-verifying keeps the original timestamp", func(t *testing.T) {
		first := *stored.VerifiedAt

		require.NoError(t, svc.MarkVerified(context.Background(), user.Email))

		again, err := svc.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, again.VerifiedAt)
		require.Equal(t, first, *again.VerifiedAt)
	})
}
