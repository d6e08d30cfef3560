package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/domain"
)

type twoFactorSecretsRepo struct {
	q queryer
}

type secretRow struct {
	AccountID string    `db:"account_id"`
	Secret    string    `db:"secret"`
	Verified  bool      `db:"verified"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *twoFactorSecretsRepo) GetSecret(ctx context.Context, accountID string) (domain.TwoFactorSecret, error) {
	var row secretRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT account_id, secret, verified, created_at, updated_at
		 FROM two_factor_secrets WHERE account_id = ?`, accountID)
	if err != nil {
		return domain.TwoFactorSecret{}, mapNotFound(err)
	}
	return domain.TwoFactorSecret{
		AccountID: row.AccountID,
		Secret:    row.Secret,
		Verified:  row.Verified,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *twoFactorSecretsRepo) ReplaceSecret(ctx context.Context, s domain.TwoFactorSecret) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO two_factor_secrets (account_id, secret, verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
			secret     = excluded.secret,
			verified   = excluded.verified,
			updated_at = excluded.updated_at`,
		s.AccountID, s.Secret, s.Verified, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *twoFactorSecretsRepo) MarkVerified(ctx context.Context, accountID string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE two_factor_secrets SET verified = 1, updated_at = ? WHERE account_id = ?`,
		time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *twoFactorSecretsRepo) DeleteSecret(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM two_factor_secrets WHERE account_id = ?`, accountID)
	return err
}
