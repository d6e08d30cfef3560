package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/pkg/cryptox"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.accounts.Register(ctx, "alice", "alice@example.com", "Password123")
	require.NoError(t, err)
	require.NotEmpty(t, account.ID)
	require.Equal(t, "alice", account.Username)
	require.Equal(t, domain.RoleUser, account.Role)
	require.NotEqual(t, "Password123", account.PasswordHash, "password must be stored hashed")

	// Registration seeds the password history.
	entries, err := env.store.PasswordHistory().ListPasswordHistory(ctx, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		_, err := env.accounts.Register(ctx, "", "a@example.com", "Password123")
		require.ErrorIs(t, err, ErrMissingField)

		_, err = env.accounts.Register(ctx, "alice", "", "Password123")
		require.ErrorIs(t, err, ErrMissingField)

		_, err = env.accounts.Register(ctx, "alice", "a@example.com", "")
		require.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("weak password reports violations", func(t *testing.T) {
		_, err := env.accounts.Register(ctx, "alice", "a@example.com", "weak")
		var policyErr *PasswordPolicyError
		require.ErrorAs(t, err, &policyErr)
		require.Contains(t, policyErr.Violations, domain.ViolationTooShort)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := env.accounts.Register(ctx, "bob", "bob@example.com", "Password123")
		require.NoError(t, err)

		_, err = env.accounts.Register(ctx, "bob", "other@example.com", "Password123")
		require.ErrorIs(t, err, ErrAccountExists)
	})
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.register(t, "alice", "Password123")

	require.NoError(t, env.accounts.ChangePassword(ctx, account.ID, "Password123", "NewPassword456"))

	updated, err := env.store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword("NewPassword456", updated.PasswordHash))

	// The old password no longer authenticates.
	result, err := env.creds.Verify(ctx, "alice", "Password123", env.settings(t))
	require.NoError(t, err)
	require.Equal(t, domain.CredentialInvalid, result.Status)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "alice", "Password123")

	err := env.accounts.ChangePassword(context.Background(), account.ID, "not-the-password", "NewPassword456")
	require.ErrorIs(t, err, ErrWrongOldPassword)
}

func TestChangePassword_RejectsReuse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.register(t, "alice", "Password123")

	// Reusing the current password.
	err := env.accounts.ChangePassword(ctx, account.ID, "Password123", "Password123")
	require.ErrorIs(t, err, ErrPasswordReused)

	// Reusing a recent predecessor within the history depth.
	require.NoError(t, env.accounts.ChangePassword(ctx, account.ID, "Password123", "NewPassword456"))
	err = env.accounts.ChangePassword(ctx, account.ID, "NewPassword456", "Password123")
	require.ErrorIs(t, err, ErrPasswordReused)
}

func TestChangePassword_EnforcesComplexity(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "alice", "Password123")

	err := env.accounts.ChangePassword(context.Background(), account.ID, "Password123", "alllowercase")
	var policyErr *PasswordPolicyError
	require.ErrorAs(t, err, &policyErr)
	require.Contains(t, policyErr.Violations, domain.ViolationNoUppercase)
	require.Contains(t, policyErr.Violations, domain.ViolationNoDigit)
}
