package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/slogx"
)

// LockoutService tracks consecutive password failures per account and
// enforces the time-boxed lockout. Lock expiry is evaluated lazily on access;
// there is no timer.
type LockoutService struct {
	Store store.Store
	Audit *AuditService
}

// IsLockedOut is a pure read used before any password comparison so locked
// accounts incur no hashing cost.
func (s *LockoutService) IsLockedOut(ctx context.Context, accountID string) (bool, error) {
	locked, _, err := s.Status(ctx, accountID)
	return locked, err
}

// Status reports whether the account is locked and, if so, the whole minutes
// remaining (rounded up).
func (s *LockoutService) Status(ctx context.Context, accountID string) (bool, int, error) {
	rec, err := s.Store.Lockouts().GetLockout(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to load lockout record: %w", err)
	}

	now := time.Now().UTC()
	if !rec.Locked(now) {
		return false, 0, nil
	}
	return true, minutesUntil(*rec.LockExpiry, now), nil
}

// CheckAndRecordFailure registers one failed password attempt. An already
// locked account is reported without touching the counter, so repeated
// guesses cannot extend the lock window. The read-modify-write runs inside a
// transaction so concurrent failures cannot under-count.
func (s *LockoutService) CheckAndRecordFailure(ctx context.Context, accountID string, settings domain.SecuritySettings) (domain.LockoutOutcome, error) {
	var outcome domain.LockoutOutcome

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()

		rec, err := tx.Lockouts().GetLockout(ctx, accountID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			rec = domain.LockoutRecord{AccountID: accountID}
		}

		if rec.Locked(now) {
			outcome = domain.LockoutOutcome{
				LockedOut:        true,
				RemainingMinutes: minutesUntil(*rec.LockExpiry, now),
			}
			return nil
		}

		rec.FailedAttempts++
		rec.LastFailureAt = now

		if rec.FailedAttempts >= settings.FailedLoginAttempts {
			expiry := now.Add(time.Duration(settings.LockoutDurationMinutes) * time.Minute)
			rec.LockExpiry = &expiry
			outcome = domain.LockoutOutcome{
				LockedOut:        true,
				RemainingMinutes: settings.LockoutDurationMinutes,
			}

			if err := s.Audit.Record(ctx, tx, accountID, domain.AuditLockout,
				fmt.Sprintf("locked for %d minutes after %d failed attempts",
					settings.LockoutDurationMinutes, rec.FailedAttempts)); err != nil {
				return err
			}
		} else {
			outcome = domain.LockoutOutcome{
				RemainingAttempts: settings.FailedLoginAttempts - rec.FailedAttempts,
			}
		}

		return tx.Lockouts().UpsertLockout(ctx, rec)
	})
	if err != nil {
		return domain.LockoutOutcome{}, fmt.Errorf("failed to record login failure: %w", err)
	}

	if outcome.LockedOut {
		slogx.FromContext(ctx).Warn("account locked out",
			"account_id", accountID,
			"remaining_minutes", outcome.RemainingMinutes,
		)
	}

	return outcome, nil
}

// Reset zeroes the failure counter and clears any lock. Called on every
// successful authentication, including after an expired lock.
func (s *LockoutService) Reset(ctx context.Context, accountID string) error {
	if err := s.Store.Lockouts().ResetLockout(ctx, accountID); err != nil {
		return fmt.Errorf("failed to reset lockout record: %w", err)
	}
	return nil
}

func minutesUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Minutes()))
}
