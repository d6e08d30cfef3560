package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/store"
)

type txStore struct {
	tx *sqlx.Tx
}

func newTx(tx *sqlx.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // nothing to close; the outer DB stays open

// Ping is a no-op inside a transaction; the connection is already held.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return sql.ErrTxDone } // migrations run before any tx

func (t *txStore) Accounts() store.Accounts                 { return &accountsRepo{q: t.tx} }
func (t *txStore) Lockouts() store.Lockouts                 { return &lockoutsRepo{q: t.tx} }
func (t *txStore) PasswordHistory() store.PasswordHistory   { return &passwordHistoryRepo{q: t.tx} }
func (t *txStore) Settings() store.Settings                 { return &settingsRepo{q: t.tx} }
func (t *txStore) TwoFactorSecrets() store.TwoFactorSecrets { return &twoFactorSecretsRepo{q: t.tx} }
func (t *txStore) BackupCodes() store.BackupCodes           { return &backupCodesRepo{q: t.tx} }
func (t *txStore) Challenges() store.Challenges             { return &challengesRepo{q: t.tx} }
func (t *txStore) Sessions() store.Sessions                 { return &sessionsRepo{q: t.tx} }
func (t *txStore) AuditLog() store.AuditLog                 { return &auditLogRepo{q: t.tx} }
