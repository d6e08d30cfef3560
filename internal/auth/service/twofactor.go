package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/cryptox"
	"github.com/tovera/authcore/pkg/otpx"
)

// totpSecretBytes is the raw secret size. 20 bytes = 160 bits, the RFC 4226
// recommended minimum.
const totpSecretBytes = 20

var (
	ErrInvalidTOTPCode    = errors.New("invalid TOTP code")
	ErrNoPendingSetup     = errors.New("no two-factor setup in progress")
	ErrTwoFactorNotActive = errors.New("two-factor authentication not active for this account")
)

// TwoFactorService provisions, verifies, and tears down per-account TOTP
// secrets and their backup codes.
type TwoFactorService struct {
	Store  store.Store
	Issuer string // issuer shown in authenticator apps
	Audit  *AuditService
}

// BeginSetup provisions a fresh secret for the account and returns the
// otpauth:// URI for client-side QR rendering. Any prior secret, verified or
// not, is replaced and its backup codes invalidated.
func (s *TwoFactorService) BeginSetup(ctx context.Context, accountID string) (domain.TwoFactorSetup, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("failed to load account: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: account.Username,
		Period:      otpx.Period,
		SecretSize:  totpSecretBytes,
		Digits:      otpx.Digits,
		Algorithm:   otpx.Algorithm,
	})
	if err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	now := time.Now().UTC()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TwoFactorSecrets().ReplaceSecret(ctx, domain.TwoFactorSecret{
			AccountID: accountID,
			Secret:    key.Secret(),
			Verified:  false,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to store secret: %w", err)
		}

		// A replaced secret's codes must not survive into the new setup.
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, accountID); err != nil {
			return fmt.Errorf("failed to clear backup codes: %w", err)
		}

		if err := tx.Accounts().SetTwoFactorFlags(ctx, accountID, true, false); err != nil {
			return fmt.Errorf("failed to update account flags: %w", err)
		}

		return s.Audit.Record(ctx, tx, accountID, domain.AuditTwoFactorSetup, "TOTP setup initiated")
	})
	if err != nil {
		return domain.TwoFactorSetup{}, err
	}

	return domain.TwoFactorSetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// CompleteSetup verifies the first code against the pending secret. On
// success the secret becomes active and a fresh backup-code set is returned.
// This is the only time the codes exist in plaintext.
func (s *TwoFactorService) CompleteSetup(ctx context.Context, accountID, code string) ([]string, error) {
	secret, err := s.Store.TwoFactorSecrets().GetSecret(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoPendingSetup
		}
		return nil, fmt.Errorf("failed to load secret: %w", err)
	}

	if !otpx.VerifyCode(secret.Secret, code) {
		return nil, ErrInvalidTOTPCode
	}

	codes, err := generateBackupCodes(domain.BackupCodeCount)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TwoFactorSecrets().MarkVerified(ctx, accountID); err != nil {
			return fmt.Errorf("failed to mark secret verified: %w", err)
		}

		if err := tx.Accounts().SetTwoFactorFlags(ctx, accountID, true, true); err != nil {
			return fmt.Errorf("failed to update account flags: %w", err)
		}

		// Setup completion always issues a new set.
		if err := replaceBackupCodes(ctx, tx, accountID, codes); err != nil {
			return err
		}

		return s.Audit.Record(ctx, tx, accountID, domain.AuditTwoFactorVerify, "TOTP setup completed")
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// Disable removes the secret, the backup codes, and the account flags.
// Idempotent: disabling an account without a secret is not an error.
func (s *TwoFactorService) Disable(ctx context.Context, accountID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.TwoFactorSecrets().DeleteSecret(ctx, accountID); err != nil {
			return fmt.Errorf("failed to delete secret: %w", err)
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, accountID); err != nil {
			return fmt.Errorf("failed to delete backup codes: %w", err)
		}
		if err := tx.Accounts().SetTwoFactorFlags(ctx, accountID, false, false); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("failed to update account flags: %w", err)
		}
		return s.Audit.Record(ctx, tx, accountID, domain.AuditTwoFactorDisable, "two-factor disabled")
	})
}

// RegenerateBackupCodes issues a new code set for an account with an active
// secret. The old set is invalidated atomically, even if unused.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, accountID string) ([]string, error) {
	secret, err := s.Store.TwoFactorSecrets().GetSecret(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTwoFactorNotActive
		}
		return nil, fmt.Errorf("failed to load secret: %w", err)
	}
	if !secret.Verified {
		return nil, ErrTwoFactorNotActive
	}

	codes, err := generateBackupCodes(domain.BackupCodeCount)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := replaceBackupCodes(ctx, tx, accountID, codes); err != nil {
			return err
		}
		return s.Audit.Record(ctx, tx, accountID, domain.AuditBackupCodeRegen, "backup codes regenerated")
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// VerifyAndConsumeBackupCode checks a presented backup code and removes it
// from the unused set in the same transaction, so the same code can never
// verify twice, even under concurrent submissions. Returns whether the code
// was valid and how many codes remain.
func (s *TwoFactorService) VerifyAndConsumeBackupCode(ctx context.Context, accountID, code string) (bool, int, error) {
	hash := cryptox.FingerprintToken(normalizeBackupCode(code))

	var (
		consumed  bool
		remaining int
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		consumed, err = tx.BackupCodes().ConsumeBackupCode(ctx, accountID, hash)
		if err != nil {
			return fmt.Errorf("failed to consume backup code: %w", err)
		}
		remaining, err = tx.BackupCodes().CountBackupCodes(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to count backup codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	return consumed, remaining, nil
}

func generateBackupCodes(n int) ([]string, error) {
	codes := make([]string, n)
	for i := range codes {
		code, err := cryptox.GenerateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		codes[i] = code
	}
	return codes, nil
}

func replaceBackupCodes(ctx context.Context, tx store.Tx, accountID string, codes []string) error {
	if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, accountID); err != nil {
		return fmt.Errorf("failed to delete old backup codes: %w", err)
	}
	for _, code := range codes {
		if err := tx.BackupCodes().CreateBackupCode(ctx, accountID, cryptox.FingerprintToken(code)); err != nil {
			return fmt.Errorf("failed to store backup code: %w", err)
		}
	}
	return nil
}

// normalizeBackupCode maps user input onto the canonical XXXXX-XXXXX form:
// uppercase, whitespace stripped, dash inserted if omitted.
func normalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.Join(strings.Fields(code), ""))
	if len(code) == 10 && !strings.Contains(code, "-") {
		code = code[:5] + "-" + code[5:]
	}
	return code
}
