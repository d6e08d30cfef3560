package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/cryptox"
	"github.com/tovera/authcore/pkg/slogx"
)

var ErrInvalidCredentials = errors.New("invalid_credentials")

// CredentialService orchestrates the username/password check. The order of
// operations is fixed: lookup, lockout pre-check, hash comparison, counter
// update. Neither the result shape nor the timing reveals whether a username
// exists.
type CredentialService struct {
	Store   store.Store
	Lockout *LockoutService
	Policy  *PolicyService
}

// Verify checks a username/password pair against the stored credentials.
func (s *CredentialService) Verify(ctx context.Context, username, password string, settings domain.SecuritySettings) (domain.CredentialResult, error) {
	account, err := s.Store.Accounts().GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same hashing cost as a real comparison so response
			// time does not distinguish unknown usernames.
			cryptox.DummyVerify(password)
			return domain.CredentialResult{
				Status:            domain.CredentialInvalid,
				RemainingAttempts: -1,
			}, nil
		}
		return domain.CredentialResult{}, fmt.Errorf("failed to look up account: %w", err)
	}

	// Locked accounts are refused before the expensive comparison and
	// without touching the failure counter.
	locked, minutes, err := s.Lockout.Status(ctx, account.ID)
	if err != nil {
		return domain.CredentialResult{}, err
	}
	if locked {
		return domain.CredentialResult{
			Status:           domain.CredentialLockedOut,
			RemainingMinutes: minutes,
		}, nil
	}

	if cryptox.VerifyPassword(password, account.PasswordHash) != nil {
		outcome, err := s.Lockout.CheckAndRecordFailure(ctx, account.ID, settings)
		if err != nil {
			return domain.CredentialResult{}, err
		}
		if outcome.LockedOut {
			return domain.CredentialResult{
				Status:           domain.CredentialLockedOut,
				RemainingMinutes: outcome.RemainingMinutes,
			}, nil
		}
		return domain.CredentialResult{
			Status:            domain.CredentialInvalid,
			RemainingAttempts: outcome.RemainingAttempts,
		}, nil
	}

	if err := s.Lockout.Reset(ctx, account.ID); err != nil {
		return domain.CredentialResult{}, err
	}

	expired, err := s.Policy.IsExpired(ctx, account.ID, settings)
	if err != nil {
		return domain.CredentialResult{}, err
	}
	if expired {
		slogx.FromContext(ctx).Info("password expired", "account_id", account.ID)
	}

	return domain.CredentialResult{
		Status:          domain.CredentialValid,
		Account:         account,
		PasswordExpired: expired,
	}, nil
}
