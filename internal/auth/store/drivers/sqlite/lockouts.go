package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/domain"
)

type lockoutsRepo struct {
	q queryer
}

type lockoutRow struct {
	AccountID      string       `db:"account_id"`
	FailedAttempts int          `db:"failed_attempts"`
	LastFailureAt  time.Time    `db:"last_failure_at"`
	LockExpiry     sql.NullTime `db:"lock_expiry"`
}

func (r lockoutRow) toDomain() domain.LockoutRecord {
	rec := domain.LockoutRecord{
		AccountID:      r.AccountID,
		FailedAttempts: r.FailedAttempts,
		LastFailureAt:  r.LastFailureAt,
	}
	if r.LockExpiry.Valid {
		t := r.LockExpiry.Time
		rec.LockExpiry = &t
	}
	return rec
}

func (r *lockoutsRepo) GetLockout(ctx context.Context, accountID string) (domain.LockoutRecord, error) {
	var row lockoutRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT account_id, failed_attempts, last_failure_at, lock_expiry
		 FROM lockout_records WHERE account_id = ?`, accountID)
	if err != nil {
		return domain.LockoutRecord{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

func (r *lockoutsRepo) UpsertLockout(ctx context.Context, rec domain.LockoutRecord) error {
	var expiry sql.NullTime
	if rec.LockExpiry != nil {
		expiry = sql.NullTime{Time: *rec.LockExpiry, Valid: true}
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO lockout_records (account_id, failed_attempts, last_failure_at, lock_expiry)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
			failed_attempts = excluded.failed_attempts,
			last_failure_at = excluded.last_failure_at,
			lock_expiry     = excluded.lock_expiry`,
		rec.AccountID, rec.FailedAttempts, rec.LastFailureAt, expiry)
	return err
}

func (r *lockoutsRepo) ResetLockout(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE lockout_records SET failed_attempts = 0, lock_expiry = NULL
		 WHERE account_id = ?`, accountID)
	return err
}
