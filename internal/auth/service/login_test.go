package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tovera/authcore/internal/auth/domain"
)

// enableMandatoryTwoFactor flips both stages of the global gate.
func enableMandatoryTwoFactor(t *testing.T, env *testEnv) {
	t.Helper()
	settings := env.settings(t)
	settings.TwoFactorEnabled = true
	settings.TwoFactorActivated = true
	env.updateSettings(t, settings)
}

// enrollTwoFactor completes the setup flow and returns the secret plus the
// issued backup codes.
func enrollTwoFactor(t *testing.T, env *testEnv, accountID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := env.twoFactor.BeginSetup(ctx, accountID)
	require.NoError(t, err)
	codes, err := env.twoFactor.CompleteSetup(ctx, accountID, totpCode(t, setup.Secret))
	require.NoError(t, err)
	return setup.Secret, codes
}

func TestLogin_PasswordOnlyWhenGateOff(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "alice", "Password123")

	result, err := env.login.Login(context.Background(), "alice", "Password123")
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, result.Status)
	require.Equal(t, account.ID, result.Account.ID)
	require.Equal(t, -1, result.BackupCodesRemaining)
}

func TestLogin_GateNeedsBothFlags(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "Password123")

	// Enabled but not activated: still a plain password login.
	settings := env.settings(t)
	settings.TwoFactorEnabled = true
	settings.TwoFactorActivated = false
	env.updateSettings(t, settings)

	result, err := env.login.Login(context.Background(), "alice", "Password123")
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, result.Status)
}

func TestLogin_SetupRequiredWhenNotEnrolled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.register(t, "alice", "Password123")
	enableMandatoryTwoFactor(t, env)

	result, err := env.login.Login(ctx, "alice", "Password123")
	require.NoError(t, err)
	require.Equal(t, domain.LoginTwoFactorSetupRequired, result.Status)

	// An unfinished setup still requires setup, not a code prompt.
	_, err = env.twoFactor.BeginSetup(ctx, account.ID)
	require.NoError(t, err)

	result, err = env.login.Login(ctx, "alice", "Password123")
	require.NoError(t, err)
	require.Equal(t, domain.LoginTwoFactorSetupRequired, result.Status)
}

func TestLogin_TwoFactorFlowWithTOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.register(t, "alice", "Password123")
	enableMandatoryTwoFactor(t, env)
	secret, _ := enrollTwoFactor(t, env, account.ID)

	result, err := env.login.Login(ctx, "alice", "Password123")
	require.NoError(t, err)
	require.Equal(t, domain.LoginTwoFactorPending, result.Status)
	require.NotEmpty(t, result.ChallengeID)

	final, err := env.login.CompleteTwoFactor(ctx, result.ChallengeID, totpCode(t, secret), MethodTOTP)
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, final.Status)
	require.Equal(t, account.ID, final.Account.ID)
	require.Equal(t, -1, final.BackupCodesRemaining)

	// The challenge is single use.
	_, err = env.login.CompleteTwoFactor(ctx, result.ChallengeID, totpCode(t, secret), MethodTOTP)
	require.ErrorIs(t, err, ErrInvalidChallenge)
}

func TestLogin_TwoFactorFlowWithBackupCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.register(t, "alice", "Password123")
	enableMandatoryTwoFactor(t, env)
	_, codes := enrollTwoFactor(t, env, account.ID)

	result, err := env.login.Login(ctx, "alice", "Password123")
	require.NoError(t, err)
	require.Equal(t, domain.LoginTwoFactorPending, result.Status)

	final, err := env.login.CompleteTwoFactor(ctx, result.ChallengeID, codes[0], MethodBackupCode)
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, final.Status)
	require.Equal(t, 7, final.BackupCodesRemaining)
}

func TestLogin_WrongCodeLeavesChallengePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.register(t, "alice", "Password123")
	enableMandatoryTwoFactor(t, env)
	secret, _ := enrollTwoFactor(t, env, account.ID)

	result, err := env.login.Login(ctx, "alice", "Password123")
	require.NoError(t, err)

	_, err = env.login.CompleteTwoFactor(ctx, result.ChallengeID, "000000", MethodTOTP)
	require.ErrorIs(t, err, ErrInvalidTwoFactor)

	// A failed code must not touch the password lockout counter.
	locked, err := env.lockout.IsLockedOut(ctx, account.ID)
	require.NoError(t, err)
	require.False(t, locked)

	// The challenge survives and the right code still completes it.
	final, err := env.login.CompleteTwoFactor(ctx, result.ChallengeID, totpCode(t, secret), MethodTOTP)
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, final.Status)
}

func TestLogin_ChallengeAttemptCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.register(t, "alice", "Password123")
	enableMandatoryTwoFactor(t, env)
	secret, _ := enrollTwoFactor(t, env, account.ID)

	result, err := env.login.Login(ctx, "alice", "Password123")
	require.NoError(t, err)

	for range domain.MaxChallengeAttempts {
		_, err := env.login.CompleteTwoFactor(ctx, result.ChallengeID, "000000", MethodTOTP)
		require.ErrorIs(t, err, ErrInvalidTwoFactor)
	}

	// The cap consumes the challenge, even with the correct code.
	_, err = env.login.CompleteTwoFactor(ctx, result.ChallengeID, totpCode(t, secret), MethodTOTP)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = env.login.CompleteTwoFactor(ctx, result.ChallengeID, totpCode(t, secret), MethodTOTP)
	require.ErrorIs(t, err, ErrInvalidChallenge)
}

func TestLogin_InvalidChallengeAndMethod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.register(t, "alice", "Password123")
	enableMandatoryTwoFactor(t, env)
	enrollTwoFactor(t, env, account.ID)

	_, err := env.login.CompleteTwoFactor(ctx, "no-such-challenge", "123456", MethodTOTP)
	require.ErrorIs(t, err, ErrInvalidChallenge)

	result, err := env.login.Login(ctx, "alice", "Password123")
	require.NoError(t, err)

	_, err = env.login.CompleteTwoFactor(ctx, result.ChallengeID, "123456", "sms")
	require.ErrorIs(t, err, ErrInvalidMethod)
}

func TestLogin_InvalidAndLockedStatuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "Password123")
	settings := env.settings(t)

	result, err := env.login.Login(ctx, "alice", "wrong-password")
	require.NoError(t, err)
	require.Equal(t, domain.LoginInvalid, result.Status)
	require.Equal(t, settings.FailedLoginAttempts-1, result.RemainingAttempts)

	for range settings.FailedLoginAttempts {
		result, err = env.login.Login(ctx, "alice", "wrong-password")
		require.NoError(t, err)
	}
	require.Equal(t, domain.LoginLockedOut, result.Status)
	require.Positive(t, result.RemainingMinutes)

	// Unknown usernames look exactly like wrong passwords.
	result, err = env.login.Login(ctx, "nobody", "whatever")
	require.NoError(t, err)
	require.Equal(t, domain.LoginInvalid, result.Status)
	require.Equal(t, -1, result.RemainingAttempts)
}

func TestLogin_ExpiredPasswordCarriesThroughChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.registerAged(t, "alice", "Password123", 31*24*time.Hour)
	enableMandatoryTwoFactor(t, env)
	secret, _ := enrollTwoFactor(t, env, account.ID)

	settings := env.settings(t)
	settings.PasswordExpiryDays = 30
	env.updateSettings(t, settings)

	result, err := env.login.Login(ctx, "alice", "Password123")
	require.NoError(t, err)
	require.Equal(t, domain.LoginTwoFactorPending, result.Status)
	require.True(t, result.PasswordExpired)

	final, err := env.login.CompleteTwoFactor(ctx, result.ChallengeID, totpCode(t, secret), MethodTOTP)
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, final.Status)
	require.True(t, final.PasswordExpired, "the expired flag survives the second factor")
}
