// Package sqlite is the reference store driver, built on modernc.org/sqlite
// (pure Go, no cgo) with sqlx for query plumbing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/store"
	_ "modernc.org/sqlite"
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx so every repo works
// inside and outside a transaction.
type queryer interface {
	sqlx.ExtContext
}

type Store struct {
	db  *sqlx.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single writer. Avoids SQLITE_BUSY under concurrent transactions and
	// keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	// Enforce FKs; sqlite leaves them off by default.
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling
// commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Rollback after commit is a no-op, so the defer is always safe.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Accounts() store.Accounts                 { return &accountsRepo{q: s.db} }
func (s *Store) Lockouts() store.Lockouts                 { return &lockoutsRepo{q: s.db} }
func (s *Store) PasswordHistory() store.PasswordHistory   { return &passwordHistoryRepo{q: s.db} }
func (s *Store) Settings() store.Settings                 { return &settingsRepo{q: s.db} }
func (s *Store) TwoFactorSecrets() store.TwoFactorSecrets { return &twoFactorSecretsRepo{q: s.db} }
func (s *Store) BackupCodes() store.BackupCodes           { return &backupCodesRepo{q: s.db} }
func (s *Store) Challenges() store.Challenges             { return &challengesRepo{q: s.db} }
func (s *Store) Sessions() store.Sessions                 { return &sessionsRepo{q: s.db} }
func (s *Store) AuditLog() store.AuditLog                 { return &auditLogRepo{q: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// requireRow maps a zero-rows-affected update onto ErrNotFound so callers can
// tell a missing record apart from a silent no-op.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
