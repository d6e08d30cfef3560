package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/cryptox"
	"github.com/tovera/authcore/pkg/idx"
)

var (
	ErrAccountExists    = errors.New("username or email already registered")
	ErrPasswordReused   = errors.New("password was used recently")
	ErrMissingField     = errors.New("missing required field")
	ErrWrongOldPassword = errors.New("current password does not match")
)

// PasswordPolicyError carries the full violation list so callers can show
// every failed rule at once.
type PasswordPolicyError struct {
	Violations []domain.PasswordViolation
}

func (e *PasswordPolicyError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = string(v)
	}
	return "password policy violated: " + strings.Join(parts, ", ")
}

// AccountService handles registration and password changes.
type AccountService struct {
	Store  store.Store
	Policy *PolicyService
	Audit  *AuditService
}

// Register creates a new account. The initial password goes through the same
// complexity rules as any change and seeds the password history.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (domain.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return domain.Account{}, ErrMissingField
	}

	settings, err := s.Store.Settings().GetSettings(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to load security settings: %w", err)
	}

	if violations := s.Policy.ValidateComplexity(password, settings); len(violations) > 0 {
		return domain.Account{}, &PasswordPolicyError{Violations: violations}
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	account := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrAccountExists
			}
			return fmt.Errorf("failed to create account: %w", err)
		}

		if err := s.Policy.RecordPasswordChange(ctx, tx, domain.PasswordHistoryEntry{
			ID:           idx.New().String(),
			AccountID:    account.ID,
			PasswordHash: hash,
			CreatedAt:    now,
		}, settings); err != nil {
			return err
		}

		return s.Audit.Record(ctx, tx, account.ID, domain.AuditRegister, "account registered")
	})
	if err != nil {
		return domain.Account{}, err
	}

	return account, nil
}

// ChangePassword verifies the current password, enforces complexity and
// reuse policy against the new one, then swaps the hash and records the
// change in the history (appending and pruning in the same transaction).
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return ErrMissingField
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if cryptox.VerifyPassword(oldPassword, account.PasswordHash) != nil {
		return ErrWrongOldPassword
	}

	settings, err := s.Store.Settings().GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load security settings: %w", err)
	}

	if violations := s.Policy.ValidateComplexity(newPassword, settings); len(violations) > 0 {
		return &PasswordPolicyError{Violations: violations}
	}

	reused, err := s.Policy.IsReused(ctx, accountID, newPassword, settings)
	if err != nil {
		return err
	}
	if reused {
		return ErrPasswordReused
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, accountID, newHash); err != nil {
			return fmt.Errorf("failed to update password hash: %w", err)
		}

		if err := s.Policy.RecordPasswordChange(ctx, tx, domain.PasswordHistoryEntry{
			ID:           idx.New().String(),
			AccountID:    accountID,
			PasswordHash: newHash,
			CreatedAt:    now,
		}, settings); err != nil {
			return err
		}

		return s.Audit.Record(ctx, tx, accountID, domain.AuditPasswordChange, "password changed")
	})
}
