package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store/drivers/sqlite"
	"github.com/tovera/authcore/pkg/cryptox"
	"github.com/tovera/authcore/pkg/idx"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

// testEnv wires the full service graph over an in-memory store, mirroring the
// production wiring in the app package.
type testEnv struct {
	store     *sqlite.Store
	audit     *AuditService
	lockout   *LockoutService
	policy    *PolicyService
	creds     *CredentialService
	twoFactor *TwoFactorService
	login     *LoginService
	accounts  *AccountService
	admin     *AdminService
	bootstrap *BootstrapService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Settings().SeedSettings(context.Background(), domain.DefaultSecuritySettings()))

	env := &testEnv{store: st}
	env.audit = &AuditService{Store: st}
	env.lockout = &LockoutService{Store: st, Audit: env.audit}
	env.policy = &PolicyService{Store: st}
	env.creds = &CredentialService{Store: st, Lockout: env.lockout, Policy: env.policy}
	env.twoFactor = &TwoFactorService{Store: st, Issuer: "authcore-test", Audit: env.audit}
	env.login = &LoginService{Store: st, Credentials: env.creds, TwoFactor: env.twoFactor, Audit: env.audit}
	env.accounts = &AccountService{Store: st, Policy: env.policy, Audit: env.audit}
	env.admin = &AdminService{Store: st, Audit: env.audit}
	env.bootstrap = &BootstrapService{Store: st, Accounts: env.accounts}
	return env
}

func (e *testEnv) settings(t *testing.T) domain.SecuritySettings {
	t.Helper()
	s, err := e.store.Settings().GetSettings(context.Background())
	require.NoError(t, err)
	return s
}

func (e *testEnv) updateSettings(t *testing.T, s domain.SecuritySettings) {
	t.Helper()
	require.NoError(t, e.store.Settings().UpdateSettings(context.Background(), s))
}

func (e *testEnv) register(t *testing.T, username, password string) domain.Account {
	t.Helper()
	account, err := e.accounts.Register(context.Background(), username, username+"@example.com", password)
	require.NoError(t, err)
	return account
}

// registerAged seeds an account whose password was last changed `age` ago,
// bypassing the service so the history timestamp can be back-dated.
func (e *testEnv) registerAged(t *testing.T, username, password string, age time.Duration) domain.Account {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	at := time.Now().UTC().Add(-age)
	account := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	require.NoError(t, e.store.Accounts().CreateAccount(ctx, account))
	require.NoError(t, e.store.PasswordHistory().AppendPasswordHistory(ctx, domain.PasswordHistoryEntry{
		ID:           idx.NewAt(at).String(),
		AccountID:    account.ID,
		PasswordHash: hash,
		CreatedAt:    at,
	}))
	return account
}
