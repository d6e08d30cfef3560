package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/cryptox"
)

// PolicyService validates candidate passwords against the configured
// complexity rules, expiry interval, and reuse history. All three checks are
// pure reads; appending to and pruning the history is the caller's explicit
// step after a successful change.
type PolicyService struct {
	Store store.Store
}

// ValidateComplexity returns every violated rule, not just the first, so
// callers can surface the full list.
func (s *PolicyService) ValidateComplexity(password string, settings domain.SecuritySettings) []domain.PasswordViolation {
	var violations []domain.PasswordViolation

	if len(password) < settings.MinPasswordLength {
		violations = append(violations, domain.ViolationTooShort)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	if settings.RequireUppercase && !upper {
		violations = append(violations, domain.ViolationNoUppercase)
	}
	if settings.RequireLowercase && !lower {
		violations = append(violations, domain.ViolationNoLowercase)
	}
	if settings.RequireDigit && !digit {
		violations = append(violations, domain.ViolationNoDigit)
	}
	if settings.RequireSpecial && !special {
		violations = append(violations, domain.ViolationNoSpecial)
	}

	return violations
}

// IsExpired reports whether the account's password has reached the configured
// expiry interval, inclusive at the boundary. Expiry is disabled when the
// interval is zero; accounts with no history are never expired.
func (s *PolicyService) IsExpired(ctx context.Context, accountID string, settings domain.SecuritySettings) (bool, error) {
	if settings.PasswordExpiryDays == 0 {
		return false, nil
	}

	lastChange, err := s.Store.PasswordHistory().LatestPasswordChange(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load password history: %w", err)
	}

	age := time.Now().UTC().Sub(lastChange)
	return age >= time.Duration(settings.PasswordExpiryDays)*24*time.Hour, nil
}

// IsReused reports whether candidate matches any of the most recent
// history-depth password hashes. Depth zero disables the check.
func (s *PolicyService) IsReused(ctx context.Context, accountID, candidate string, settings domain.SecuritySettings) (bool, error) {
	if settings.PasswordHistoryDepth == 0 {
		return false, nil
	}

	entries, err := s.Store.PasswordHistory().ListPasswordHistory(ctx, accountID, settings.PasswordHistoryDepth)
	if err != nil {
		return false, fmt.Errorf("failed to load password history: %w", err)
	}

	for _, e := range entries {
		if cryptox.VerifyPassword(candidate, e.PasswordHash) == nil {
			return true, nil
		}
	}
	return false, nil
}

// RecordPasswordChange appends the new hash to the history and prunes it to
// the configured depth (never below one). Runs in the transaction the caller
// provides so the account update and the history stay consistent.
func (s *PolicyService) RecordPasswordChange(ctx context.Context, tx store.Tx, entry domain.PasswordHistoryEntry, settings domain.SecuritySettings) error {
	if err := tx.PasswordHistory().AppendPasswordHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to append password history: %w", err)
	}

	keep := settings.PasswordHistoryDepth
	if keep < 1 {
		keep = 1
	}
	if err := tx.PasswordHistory().PrunePasswordHistory(ctx, entry.AccountID, keep); err != nil {
		return fmt.Errorf("failed to prune password history: %w", err)
	}
	return nil
}
