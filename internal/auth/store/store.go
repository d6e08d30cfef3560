package store

import (
	"context"
	"errors"
	"time"

	"github.com/tovera/authcore/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and let tests target
// one table at a time.
type Store interface {
	Accounts() Accounts
	Lockouts() Lockouts
	PasswordHistory() PasswordHistory
	Settings() Settings
	TwoFactorSecrets() TwoFactorSecrets
	BackupCodes() BackupCodes
	Challenges() Challenges
	Sessions() Sessions
	AuditLog() AuditLog

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store. The
	// caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back on error and
	// committing on nil. This is the recommended way to run the multi-step
	// mutations (lockout increments, backup-code consumption, history
	// pruning) that must be per-account atomic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByUsername is used during credential verification. Lookup is
	// exact-match; absence is ErrNotFound, never an empty account.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by the app via ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID, newHash string) error

	// UpdateRole changes the account role.
	UpdateRole(ctx context.Context, accountID, role string) error

	// HasAdmin reports whether any administrator account exists, used to
	// decide whether the initial admin must be seeded at startup.
	HasAdmin(ctx context.Context) (bool, error)

	// SetTwoFactorFlags updates the enabled/verified pair together so the
	// flags never disagree with the secret row.
	SetTwoFactorFlags(ctx context.Context, accountID string, enabled, verified bool) error

	// ListTwoFactorAccountIDs returns ids of all accounts with 2FA enabled,
	// used by the administrative reset-all path.
	ListTwoFactorAccountIDs(ctx context.Context) ([]string, error)
}

type Lockouts interface {
	// GetLockout returns the lockout record, or ErrNotFound if the account
	// has never failed a login.
	GetLockout(ctx context.Context, accountID string) (domain.LockoutRecord, error)

	// UpsertLockout creates or replaces the account's record.
	UpsertLockout(ctx context.Context, rec domain.LockoutRecord) error

	// ResetLockout zeroes the counters and clears the expiry. Missing record
	// is not an error.
	ResetLockout(ctx context.Context, accountID string) error
}

type PasswordHistory interface {
	// AppendPasswordHistory adds one entry.
	AppendPasswordHistory(ctx context.Context, e domain.PasswordHistoryEntry) error

	// ListPasswordHistory returns the most recent limit entries, newest first.
	ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error)

	// LatestPasswordChange returns the newest entry's timestamp, or
	// ErrNotFound when no history exists.
	LatestPasswordChange(ctx context.Context, accountID string) (time.Time, error)

	// PrunePasswordHistory deletes all but the newest keep entries.
	PrunePasswordHistory(ctx context.Context, accountID string, keep int) error
}

type Settings interface {
	// GetSettings returns the singleton settings row.
	GetSettings(ctx context.Context) (domain.SecuritySettings, error)

	// UpdateSettings replaces the singleton settings row.
	UpdateSettings(ctx context.Context, s domain.SecuritySettings) error

	// SeedSettings inserts defaults if no row exists yet.
	SeedSettings(ctx context.Context, s domain.SecuritySettings) error
}

type TwoFactorSecrets interface {
	// GetSecret returns the account's secret, ErrNotFound when 2FA was never
	// set up (or was disabled).
	GetSecret(ctx context.Context, accountID string) (domain.TwoFactorSecret, error)

	// ReplaceSecret inserts or overwrites the account's secret.
	ReplaceSecret(ctx context.Context, s domain.TwoFactorSecret) error

	// MarkVerified flips verified=true after the first successful code check.
	MarkVerified(ctx context.Context, accountID string) error

	// DeleteSecret removes the secret entirely. Missing secret is not an error.
	DeleteSecret(ctx context.Context, accountID string) error
}

type BackupCodes interface {
	// CreateBackupCode stores one code fingerprint for an account.
	CreateBackupCode(ctx context.Context, accountID, codeHash string) error

	// ConsumeBackupCode deletes the fingerprint if present and reports
	// whether a row was removed. Check and delete happen in one statement so
	// two concurrent submissions of the same code cannot both succeed.
	ConsumeBackupCode(ctx context.Context, accountID, codeHash string) (bool, error)

	// DeleteAllBackupCodes removes every code for an account.
	DeleteAllBackupCodes(ctx context.Context, accountID string) error

	// CountBackupCodes returns how many unused codes remain.
	CountBackupCodes(ctx context.Context, accountID string) (int, error)
}

type Challenges interface {
	// CreateChallenge stores a pending second-factor challenge.
	CreateChallenge(ctx context.Context, c domain.TwoFactorChallenge) error

	// GetChallenge returns an unexpired challenge by token.
	GetChallenge(ctx context.Context, id string) (domain.TwoFactorChallenge, error)

	// IncrementChallengeAttempts bumps the failure counter and returns the
	// updated challenge.
	IncrementChallengeAttempts(ctx context.Context, id string) (domain.TwoFactorChallenge, error)

	// DeleteChallenge removes a challenge by token.
	DeleteChallenge(ctx context.Context, id string) error

	// DeleteExpiredChallenges is housekeeping.
	DeleteExpiredChallenges(ctx context.Context) error
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash returns an unexpired session by fingerprint.
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// DeleteSessionsForAccount revokes every session of one account.
	DeleteSessionsForAccount(ctx context.Context, accountID string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}

type AuditLog interface {
	// AppendAudit writes one immutable entry. Entries are never updated or
	// deleted through this interface.
	AppendAudit(ctx context.Context, e domain.AuditLogEntry) error

	// ListAuditByActor returns the most recent limit entries for an actor,
	// newest first.
	ListAuditByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditLogEntry, error)
}
