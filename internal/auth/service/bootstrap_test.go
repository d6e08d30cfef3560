package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tovera/authcore/internal/auth/domain"
)

func TestEnsureAdmin_SeedsFirstAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.bootstrap.EnsureAdmin(ctx, "root", "root@example.com", "Password123")
	require.NoError(t, err)
	require.True(t, created)

	account, err := env.store.Accounts().GetAccountByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, account.Role)

	// The seeded credentials work like any other login.
	result, err := env.login.Login(ctx, "root", "Password123")
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, result.Status)
}

func TestEnsureAdmin_NoOpOnceAdminExists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.bootstrap.EnsureAdmin(ctx, "root", "root@example.com", "Password123")
	require.NoError(t, err)
	require.True(t, created)

	// Restart with the same credentials does nothing.
	created, err = env.bootstrap.EnsureAdmin(ctx, "root", "root@example.com", "Password123")
	require.NoError(t, err)
	require.False(t, created)

	// A different configured admin is also ignored while one exists.
	created, err = env.bootstrap.EnsureAdmin(ctx, "root2", "root2@example.com", "Password123")
	require.NoError(t, err)
	require.False(t, created)

	_, err = env.store.Accounts().GetAccountByUsername(ctx, "root2")
	require.Error(t, err)
}

func TestEnsureAdmin_UnconfiguredIsNoOp(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.bootstrap.EnsureAdmin(context.Background(), "", "", "")
	require.NoError(t, err)
	require.False(t, created)
}

func TestEnsureAdmin_PartialConfigFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.bootstrap.EnsureAdmin(ctx, "root", "root@example.com", "")
	require.ErrorIs(t, err, ErrBootstrapIncomplete)

	_, err = env.bootstrap.EnsureAdmin(ctx, "", "root@example.com", "Password123")
	require.ErrorIs(t, err, ErrBootstrapIncomplete)
}

func TestEnsureAdmin_EnforcesPasswordPolicy(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.bootstrap.EnsureAdmin(context.Background(), "root", "root@example.com", "weak")
	var policyErr *PasswordPolicyError
	require.ErrorAs(t, err, &policyErr)
}

func TestEnsureAdmin_NeverPromotesUnrelatedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "root", "UsersOwnPassword1")

	// Configured admin name collides with an existing user whose password
	// differs, so promotion must be refused.
	created, err := env.bootstrap.EnsureAdmin(ctx, "root", "root@example.com", "Password123")
	require.Error(t, err)
	require.False(t, created)

	account, err := env.store.Accounts().GetAccountByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, account.Role)
}

func TestEnsureAdmin_ResumesAfterPartialBoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Account exists with the configured password but the promotion never
	// happened, as after a crash between the two steps.
	env.register(t, "root", "Password123")

	created, err := env.bootstrap.EnsureAdmin(ctx, "root", "root@example.com", "Password123")
	require.NoError(t, err)
	require.True(t, created)

	account, err := env.store.Accounts().GetAccountByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, account.Role)
}
