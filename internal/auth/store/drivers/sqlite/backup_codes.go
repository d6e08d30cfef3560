package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type backupCodesRepo struct {
	q queryer
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, accountID, codeHash string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO backup_codes (account_id, code_hash, created_at) VALUES (?, ?, ?)`,
		accountID, codeHash, time.Now().UTC())
	return err
}

// ConsumeBackupCode deletes the fingerprint in a single statement. The rows
// affected count is the consumption check: under two concurrent submissions
// of the same code only one DELETE removes a row.
func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, accountID, codeHash string) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE account_id = ? AND code_hash = ?`,
		accountID, codeHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE account_id = ?`, accountID)
	return err
}

func (r *backupCodesRepo) CountBackupCodes(ctx context.Context, accountID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.q, &count,
		`SELECT COUNT(*) FROM backup_codes WHERE account_id = ?`, accountID)
	return count, err
}
