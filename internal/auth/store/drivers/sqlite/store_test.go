package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/internal/auth/store/drivers/sqlite"
	"github.com/tovera/authcore/pkg/idx"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedAccount(t *testing.T, st *sqlite.Store, username string) domain.Account {
	t.Helper()

	now := time.Now().UTC()
	account := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Accounts().CreateAccount(context.Background(), account))
	return account
}

func TestAccounts_NotFoundAndDuplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Accounts().GetAccountByUsername(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	account := seedAccount(t, st, "alice")

	got, err := st.Accounts().GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, account.ID, got.ID)

	// Same username, different id.
	dup := account
	dup.ID = idx.New().String()
	err = st.Accounts().CreateAccount(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	// Same email too.
	dup.Username = "alice2"
	err = st.Accounts().CreateAccount(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestAccounts_HasAdmin(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	has, err := st.Accounts().HasAdmin(ctx)
	require.NoError(t, err)
	require.False(t, has)

	// Regular users do not count.
	account := seedAccount(t, st, "alice")
	has, err = st.Accounts().HasAdmin(ctx)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, st.Accounts().UpdateRole(ctx, account.ID, domain.RoleAdmin))
	has, err = st.Accounts().HasAdmin(ctx)
	require.NoError(t, err)
	require.True(t, has)
}

func TestAccounts_UpdatesRequireExistingRow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Accounts().UpdatePasswordHash(ctx, "no-such-id", "hash")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = st.Accounts().SetTwoFactorFlags(ctx, "no-such-id", true, false)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSettings_SeedIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	defaults := domain.DefaultSecuritySettings()
	require.NoError(t, st.Settings().SeedSettings(ctx, defaults))

	changed := defaults
	changed.MinPasswordLength = 20
	require.NoError(t, st.Settings().UpdateSettings(ctx, changed))

	// Re-seeding must not clobber the stored row.
	require.NoError(t, st.Settings().SeedSettings(ctx, defaults))

	got, err := st.Settings().GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, 20, got.MinPasswordLength)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		account := domain.Account{
			ID:           idx.New().String(),
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: "hash",
			Role:         domain.RoleUser,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = st.Accounts().GetAccountByUsername(ctx, "alice")
	require.ErrorIs(t, err, store.ErrNotFound, "the insert must have rolled back")
}

func TestBackupCodes_ConsumeIsOneShot(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	account := seedAccount(t, st, "alice")

	require.NoError(t, st.BackupCodes().CreateBackupCode(ctx, account.ID, "hash-1"))
	require.NoError(t, st.BackupCodes().CreateBackupCode(ctx, account.ID, "hash-2"))

	ok, err := st.BackupCodes().ConsumeBackupCode(ctx, account.ID, "hash-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.BackupCodes().ConsumeBackupCode(ctx, account.ID, "hash-1")
	require.NoError(t, err)
	require.False(t, ok)

	count, err := st.BackupCodes().CountBackupCodes(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestChallenges_ExpiryFiltering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	account := seedAccount(t, st, "alice")

	now := time.Now().UTC()
	live := domain.TwoFactorChallenge{
		ID:        idx.New().String(),
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	dead := domain.TwoFactorChallenge{
		ID:        idx.New().String(),
		AccountID: account.ID,
		CreatedAt: now.Add(-10 * time.Minute),
		ExpiresAt: now.Add(-5 * time.Minute),
	}
	require.NoError(t, st.Challenges().CreateChallenge(ctx, live))
	require.NoError(t, st.Challenges().CreateChallenge(ctx, dead))

	_, err := st.Challenges().GetChallenge(ctx, live.ID)
	require.NoError(t, err)

	_, err = st.Challenges().GetChallenge(ctx, dead.ID)
	require.ErrorIs(t, err, store.ErrNotFound, "expired challenges must not resolve")

	require.NoError(t, st.Challenges().DeleteExpiredChallenges(ctx))

	// The live one survives housekeeping.
	_, err = st.Challenges().GetChallenge(ctx, live.ID)
	require.NoError(t, err)
}

func TestLockouts_UpsertAndReset(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	account := seedAccount(t, st, "alice")

	_, err := st.Lockouts().GetLockout(ctx, account.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	expiry := time.Now().UTC().Add(30 * time.Minute)
	rec := domain.LockoutRecord{
		AccountID:      account.ID,
		FailedAttempts: 5,
		LastFailureAt:  time.Now().UTC(),
		LockExpiry:     &expiry,
	}
	require.NoError(t, st.Lockouts().UpsertLockout(ctx, rec))

	got, err := st.Lockouts().GetLockout(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, 5, got.FailedAttempts)
	require.NotNil(t, got.LockExpiry)
	require.WithinDuration(t, expiry, *got.LockExpiry, time.Second)

	require.NoError(t, st.Lockouts().ResetLockout(ctx, account.ID))

	got, err = st.Lockouts().GetLockout(ctx, account.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedAttempts)
	require.Nil(t, got.LockExpiry)
}
