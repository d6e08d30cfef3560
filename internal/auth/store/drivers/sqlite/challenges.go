package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/domain"
)

type challengesRepo struct {
	q queryer
}

type challengeRow struct {
	ID              string    `db:"id"`
	AccountID       string    `db:"account_id"`
	PasswordExpired bool      `db:"password_expired"`
	Attempts        int       `db:"attempts"`
	CreatedAt       time.Time `db:"created_at"`
	ExpiresAt       time.Time `db:"expires_at"`
}

func (r challengeRow) toDomain() domain.TwoFactorChallenge {
	return domain.TwoFactorChallenge{
		ID:              r.ID,
		AccountID:       r.AccountID,
		PasswordExpired: r.PasswordExpired,
		Attempts:        r.Attempts,
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       r.ExpiresAt,
	}
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.TwoFactorChallenge) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO two_factor_challenges
			(id, account_id, password_expired, attempts, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.PasswordExpired, c.Attempts, c.CreatedAt, c.ExpiresAt)
	return err
}

func (r *challengesRepo) GetChallenge(ctx context.Context, id string) (domain.TwoFactorChallenge, error) {
	var row challengeRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT id, account_id, password_expired, attempts, created_at, expires_at
		 FROM two_factor_challenges
		 WHERE id = ? AND expires_at > ?`, id, time.Now().UTC())
	if err != nil {
		return domain.TwoFactorChallenge{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

func (r *challengesRepo) IncrementChallengeAttempts(ctx context.Context, id string) (domain.TwoFactorChallenge, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE two_factor_challenges SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return domain.TwoFactorChallenge{}, err
	}
	if err := requireRow(res); err != nil {
		return domain.TwoFactorChallenge{}, err
	}

	var row challengeRow
	err = sqlx.GetContext(ctx, r.q, &row,
		`SELECT id, account_id, password_expired, attempts, created_at, expires_at
		 FROM two_factor_challenges WHERE id = ?`, id)
	if err != nil {
		return domain.TwoFactorChallenge{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM two_factor_challenges WHERE id = ?`, id)
	return err
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM two_factor_challenges WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
