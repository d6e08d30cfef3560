package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/domain"
)

type sessionsRepo struct {
	q queryer
}

type sessionRow struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.AccountID, s.TokenHash, s.ExpiresAt, s.CreatedAt)
	return err
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	var row sessionRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT id, account_id, token_hash, expires_at, created_at
		 FROM sessions
		 WHERE token_hash = ? AND expires_at > ?`, hash, time.Now().UTC())
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return domain.Session{
		ID:        row.ID,
		AccountID: row.AccountID,
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *sessionsRepo) DeleteSessionsForAccount(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE account_id = ?`, accountID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
