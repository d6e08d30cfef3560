package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/domain"
)

type passwordHistoryRepo struct {
	q queryer
}

type historyRow struct {
	ID           string    `db:"id"`
	AccountID    string    `db:"account_id"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *passwordHistoryRepo) AppendPasswordHistory(ctx context.Context, e domain.PasswordHistoryEntry) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO password_history (id, account_id, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`,
		e.ID, e.AccountID, e.PasswordHash, e.CreatedAt)
	return err
}

func (r *passwordHistoryRepo) ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	var rows []historyRow
	err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT id, account_id, password_hash, created_at
		 FROM password_history
		 WHERE account_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PasswordHistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.PasswordHistoryEntry{
			ID:           row.ID,
			AccountID:    row.AccountID,
			PasswordHash: row.PasswordHash,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

func (r *passwordHistoryRepo) LatestPasswordChange(ctx context.Context, accountID string) (time.Time, error) {
	var t time.Time
	err := sqlx.GetContext(ctx, r.q, &t,
		`SELECT created_at FROM password_history
		 WHERE account_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, accountID)
	if err != nil {
		return time.Time{}, mapNotFound(err)
	}
	return t, nil
}

func (r *passwordHistoryRepo) PrunePasswordHistory(ctx context.Context, accountID string, keep int) error {
	if keep < 1 {
		keep = 1 // the current password's predecessor stays comparable
	}
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM password_history
		 WHERE account_id = ?
		   AND id NOT IN (
			SELECT id FROM password_history
			WHERE account_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		 )`, accountID, accountID, keep)
	return err
}
