package service

import (
	"context"
	"fmt"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/slogx"
)

// AdminService is the administrative surface: security-settings updates and
// two-factor resets. Every mutation is audited with the administrator as the
// actor, distinct from the affected account.
type AdminService struct {
	Store store.Store
	Audit *AuditService
}

// GetSettings returns the current security settings.
func (s *AdminService) GetSettings(ctx context.Context) (domain.SecuritySettings, error) {
	return s.Store.Settings().GetSettings(ctx)
}

// UpdateSettings replaces the singleton settings row.
func (s *AdminService) UpdateSettings(ctx context.Context, actorID string, settings domain.SecuritySettings) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Settings().UpdateSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
		return s.Audit.Record(ctx, tx, actorID, domain.AuditSettingsUpdate, "security settings updated")
	})
}

// ResetTwoFactor removes one account's secret, backup codes, and flags.
func (s *AdminService) ResetTwoFactor(ctx context.Context, actorID, accountID string) error {
	// Existence check so admins get a clear not-found instead of a silent no-op.
	if _, err := s.Store.Accounts().GetAccountByID(ctx, accountID); err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := clearTwoFactor(ctx, tx, accountID); err != nil {
			return err
		}
		return s.Audit.Record(ctx, tx, actorID, domain.AuditTwoFactorReset,
			fmt.Sprintf("two-factor reset for account %s", accountID))
	})
}

// ResetTwoFactorAll removes two-factor state for every enrolled account in
// one transaction.
func (s *AdminService) ResetTwoFactorAll(ctx context.Context, actorID string) (int, error) {
	ids, err := s.Store.Accounts().ListTwoFactorAccountIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list two-factor accounts: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, id := range ids {
			if err := clearTwoFactor(ctx, tx, id); err != nil {
				return err
			}
		}
		return s.Audit.Record(ctx, tx, actorID, domain.AuditTwoFactorResetAll,
			fmt.Sprintf("two-factor reset for %d accounts", len(ids)))
	})
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("two-factor reset for all accounts",
		"actor_id", actorID, "count", len(ids))
	return len(ids), nil
}

func clearTwoFactor(ctx context.Context, tx store.Tx, accountID string) error {
	if err := tx.TwoFactorSecrets().DeleteSecret(ctx, accountID); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, accountID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}
	if err := tx.Accounts().SetTwoFactorFlags(ctx, accountID, false, false); err != nil {
		return fmt.Errorf("failed to clear account flags: %w", err)
	}
	return nil
}
