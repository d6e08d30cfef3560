package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/idx"
	"github.com/tovera/authcore/pkg/otpx"
	"github.com/tovera/authcore/pkg/slogx"
)

// Second-factor methods accepted by CompleteTwoFactor.
const (
	MethodTOTP       = "totp"
	MethodBackupCode = "backup_code"
)

var (
	ErrInvalidChallenge  = errors.New("invalid or expired two-factor challenge")
	ErrInvalidMethod     = errors.New("unknown two-factor method")
	ErrTooManyAttempts   = errors.New("too many failed two-factor attempts")
	ErrInvalidTwoFactor  = errors.New("invalid two-factor code")
	ErrTwoFactorNotReady = errors.New("two-factor secret not verified")
)

// LoginService is the state machine sequencing credential verification and,
// when policy demands it, second-factor verification into a completed login.
type LoginService struct {
	Store       store.Store
	Credentials *CredentialService
	TwoFactor   *TwoFactorService
	Audit       *AuditService
}

// Login runs the password step. Depending on the global two-factor gate and
// the account's secret state it terminates in Authenticated, or parks the
// attempt in TwoFactorSetupRequired or TwoFactorPending.
func (s *LoginService) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	settings, err := s.Store.Settings().GetSettings(ctx)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to load security settings: %w", err)
	}

	cred, err := s.Credentials.Verify(ctx, username, password, settings)
	if err != nil {
		return domain.LoginResult{}, err
	}

	switch cred.Status {
	case domain.CredentialInvalid:
		return domain.LoginResult{
			Status:               domain.LoginInvalid,
			RemainingAttempts:    cred.RemainingAttempts,
			BackupCodesRemaining: -1,
		}, nil

	case domain.CredentialLockedOut:
		return domain.LoginResult{
			Status:               domain.LoginLockedOut,
			RemainingMinutes:     cred.RemainingMinutes,
			BackupCodesRemaining: -1,
		}, nil
	}

	account := cred.Account

	// Mandatory 2FA is a two-stage gate: the feature must be both enabled
	// and activated before logins require a second factor.
	if !settings.TwoFactorRequired() {
		return s.finalize(ctx, account, cred.PasswordExpired, domain.AuditLogin, "password login", -1)
	}

	secret, err := s.Store.TwoFactorSecrets().GetSecret(ctx, account.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{
				Status:               domain.LoginTwoFactorSetupRequired,
				PasswordExpired:      cred.PasswordExpired,
				BackupCodesRemaining: -1,
			}, nil
		}
		return domain.LoginResult{}, fmt.Errorf("failed to load two-factor secret: %w", err)
	}
	if !secret.Verified {
		// A setup that never completed does not count as active 2FA; the
		// caller must run the setup flow again.
		return domain.LoginResult{
			Status:               domain.LoginTwoFactorSetupRequired,
			PasswordExpired:      cred.PasswordExpired,
			BackupCodesRemaining: -1,
		}, nil
	}

	now := time.Now().UTC()
	challenge := domain.TwoFactorChallenge{
		ID:              idx.New().String(),
		AccountID:       account.ID,
		PasswordExpired: cred.PasswordExpired,
		CreatedAt:       now,
		ExpiresAt:       now.Add(domain.ChallengeTTL),
	}
	if err := s.Store.Challenges().CreateChallenge(ctx, challenge); err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to create challenge: %w", err)
	}

	return domain.LoginResult{
		Status:               domain.LoginTwoFactorPending,
		PasswordExpired:      cred.PasswordExpired,
		ChallengeID:          challenge.ID,
		BackupCodesRemaining: -1,
	}, nil
}

// CompleteTwoFactor runs the second-factor step of a pending challenge. A
// wrong code leaves the challenge pending (up to the attempt cap) and never
// touches the account lockout counter, which is scoped to password guessing.
func (s *LoginService) CompleteTwoFactor(ctx context.Context, challengeID, code, method string) (domain.LoginResult, error) {
	l := slogx.FromContext(ctx)

	challenge, err := s.Store.Challenges().GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidChallenge
		}
		return domain.LoginResult{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	if challenge.Attempts >= domain.MaxChallengeAttempts {
		_ = s.Store.Challenges().DeleteChallenge(ctx, challengeID)
		l.Warn("two-factor challenge exceeded attempt cap",
			"account_id", challenge.AccountID, "attempts", challenge.Attempts)
		return domain.LoginResult{}, ErrTooManyAttempts
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, challenge.AccountID)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to load account: %w", err)
	}

	var (
		action    string
		detail    string
		remaining = -1
	)

	switch method {
	case MethodTOTP:
		secret, err := s.Store.TwoFactorSecrets().GetSecret(ctx, account.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.LoginResult{}, ErrTwoFactorNotReady
			}
			return domain.LoginResult{}, fmt.Errorf("failed to load two-factor secret: %w", err)
		}
		if !secret.Verified {
			return domain.LoginResult{}, ErrTwoFactorNotReady
		}
		if !otpx.VerifyCode(secret.Secret, code) {
			return domain.LoginResult{}, s.recordFailedAttempt(ctx, challengeID, method)
		}
		action, detail = domain.AuditLoginTwoFactor, "TOTP login"

	case MethodBackupCode:
		ok, left, err := s.TwoFactor.VerifyAndConsumeBackupCode(ctx, account.ID, code)
		if err != nil {
			return domain.LoginResult{}, err
		}
		if !ok {
			return domain.LoginResult{}, s.recordFailedAttempt(ctx, challengeID, method)
		}
		remaining = left
		action = domain.AuditLoginBackupCode
		detail = fmt.Sprintf("backup code login, %d codes remaining", left)

	default:
		return domain.LoginResult{}, ErrInvalidMethod
	}

	if err := s.Store.Challenges().DeleteChallenge(ctx, challengeID); err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to delete challenge: %w", err)
	}

	return s.finalize(ctx, account, challenge.PasswordExpired, action, detail, remaining)
}

// finalize is the single path into the Authenticated terminal state.
func (s *LoginService) finalize(ctx context.Context, account domain.Account, passwordExpired bool, action, detail string, backupCodesRemaining int) (domain.LoginResult, error) {
	if err := s.Audit.Record(ctx, s.Store, account.ID, action, detail); err != nil {
		return domain.LoginResult{}, err
	}

	slogx.FromContext(ctx).Info("login completed",
		"account_id", account.ID,
		"action", action,
		"password_expired", passwordExpired,
	)

	return domain.LoginResult{
		Status:               domain.LoginAuthenticated,
		Account:              account,
		PasswordExpired:      passwordExpired,
		BackupCodesRemaining: backupCodesRemaining,
	}, nil
}

func (s *LoginService) recordFailedAttempt(ctx context.Context, challengeID, method string) error {
	updated, err := s.Store.Challenges().IncrementChallengeAttempts(ctx, challengeID)
	if err != nil {
		// The validation failure wins over the bookkeeping error.
		return ErrInvalidTwoFactor
	}
	slogx.FromContext(ctx).Warn("two-factor verification failed",
		"account_id", updated.AccountID,
		"attempts", updated.Attempts,
		"method", method,
	)
	return ErrInvalidTwoFactor
}
