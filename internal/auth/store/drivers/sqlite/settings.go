package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/domain"
)

type settingsRepo struct {
	q queryer
}

type settingsRow struct {
	MinPasswordLength      int  `db:"min_password_length"`
	RequireUppercase       bool `db:"require_uppercase"`
	RequireLowercase       bool `db:"require_lowercase"`
	RequireDigit           bool `db:"require_digit"`
	RequireSpecial         bool `db:"require_special"`
	PasswordExpiryDays     int  `db:"password_expiry_days"`
	PasswordHistoryDepth   int  `db:"password_history_depth"`
	FailedLoginAttempts    int  `db:"failed_login_attempts"`
	LockoutDurationMinutes int  `db:"lockout_duration_minutes"`
	TwoFactorEnabled       bool `db:"two_factor_enabled"`
	TwoFactorActivated     bool `db:"two_factor_activated"`
}

const settingsColumns = `min_password_length, require_uppercase, require_lowercase,
	require_digit, require_special, password_expiry_days, password_history_depth,
	failed_login_attempts, lockout_duration_minutes, two_factor_enabled, two_factor_activated`

func (r *settingsRepo) GetSettings(ctx context.Context) (domain.SecuritySettings, error) {
	var row settingsRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+settingsColumns+` FROM security_settings WHERE id = 1`)
	if err != nil {
		return domain.SecuritySettings{}, mapNotFound(err)
	}
	return domain.SecuritySettings{
		MinPasswordLength:      row.MinPasswordLength,
		RequireUppercase:       row.RequireUppercase,
		RequireLowercase:       row.RequireLowercase,
		RequireDigit:           row.RequireDigit,
		RequireSpecial:         row.RequireSpecial,
		PasswordExpiryDays:     row.PasswordExpiryDays,
		PasswordHistoryDepth:   row.PasswordHistoryDepth,
		FailedLoginAttempts:    row.FailedLoginAttempts,
		LockoutDurationMinutes: row.LockoutDurationMinutes,
		TwoFactorEnabled:       row.TwoFactorEnabled,
		TwoFactorActivated:     row.TwoFactorActivated,
	}, nil
}

func (r *settingsRepo) UpdateSettings(ctx context.Context, s domain.SecuritySettings) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE security_settings SET
			min_password_length = ?, require_uppercase = ?, require_lowercase = ?,
			require_digit = ?, require_special = ?, password_expiry_days = ?,
			password_history_depth = ?, failed_login_attempts = ?,
			lockout_duration_minutes = ?, two_factor_enabled = ?, two_factor_activated = ?
		 WHERE id = 1`,
		s.MinPasswordLength, s.RequireUppercase, s.RequireLowercase,
		s.RequireDigit, s.RequireSpecial, s.PasswordExpiryDays,
		s.PasswordHistoryDepth, s.FailedLoginAttempts,
		s.LockoutDurationMinutes, s.TwoFactorEnabled, s.TwoFactorActivated)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *settingsRepo) SeedSettings(ctx context.Context, s domain.SecuritySettings) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO security_settings (id, `+settingsColumns+`)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		s.MinPasswordLength, s.RequireUppercase, s.RequireLowercase,
		s.RequireDigit, s.RequireSpecial, s.PasswordExpiryDays,
		s.PasswordHistoryDepth, s.FailedLoginAttempts,
		s.LockoutDurationMinutes, s.TwoFactorEnabled, s.TwoFactorActivated)
	return err
}
