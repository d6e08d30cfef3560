package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
)

type accountsRepo struct {
	q queryer
}

type accountRow struct {
	ID                string    `db:"id"`
	Username          string    `db:"username"`
	Email             string    `db:"email"`
	PasswordHash      string    `db:"password_hash"`
	Role              string    `db:"role"`
	TwoFactorEnabled  bool      `db:"two_factor_enabled"`
	TwoFactorVerified bool      `db:"two_factor_verified"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:                r.ID,
		Username:          r.Username,
		Email:             r.Email,
		PasswordHash:      r.PasswordHash,
		Role:              r.Role,
		TwoFactorEnabled:  r.TwoFactorEnabled,
		TwoFactorVerified: r.TwoFactorVerified,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

const accountColumns = `id, username, email, password_hash, role,
	two_factor_enabled, two_factor_verified, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, role,
			two_factor_enabled, two_factor_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Role,
		a.TwoFactorEnabled, a.TwoFactorVerified, a.CreatedAt, a.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID, newHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) UpdateRole(ctx context.Context, accountID, role string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.q, &exists,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE role = ?)`, domain.RoleAdmin)
	return exists, err
}

func (r *accountsRepo) SetTwoFactorFlags(ctx context.Context, accountID string, enabled, verified bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET two_factor_enabled = ?, two_factor_verified = ?, updated_at = ?
		 WHERE id = ?`,
		enabled, verified, time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) ListTwoFactorAccountIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, r.q, &ids,
		`SELECT id FROM accounts WHERE two_factor_enabled = 1 ORDER BY id`)
	return ids, err
}
