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

var ErrBootstrapIncomplete = errors.New("admin username and password are both required")

// BootstrapService seeds the initial administrator account. Registration only
// produces regular users and the administrative endpoints require an admin
// session, so without this the admin surface would be unreachable on a fresh
// database.
type BootstrapService struct {
	Store    store.Store
	Accounts *AccountService
}

// EnsureAdmin creates the configured administrator if no admin account exists
// yet. It returns true when an account was created or promoted. With no
// credentials configured it is a no-op, so restarts of an already-seeded
// system never need the variables set.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if username == "" && password == "" {
		return false, nil
	}
	if username == "" || password == "" {
		return false, ErrBootstrapIncomplete
	}

	hasAdmin, err := s.Store.Accounts().HasAdmin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if hasAdmin {
		return false, nil
	}

	account, err := s.Accounts.Register(ctx, username, email, password)
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			// A previous boot created the account but crashed before the
			// promotion. Resume only if the configured password matches, so
			// an unrelated user who happens to own the name never gets
			// promoted.
			existing, err := s.Store.Accounts().GetAccountByUsername(ctx, username)
			if err != nil {
				return false, fmt.Errorf("failed to load existing bootstrap account: %w", err)
			}
			if cryptox.VerifyPassword(password, existing.PasswordHash) != nil {
				return false, fmt.Errorf("account %q already exists and is not the bootstrap admin", username)
			}
			account = existing
		} else {
			return false, fmt.Errorf("failed to create admin account: %w", err)
		}
	}

	if err := s.Store.Accounts().UpdateRole(ctx, account.ID, domain.RoleAdmin); err != nil {
		return false, fmt.Errorf("failed to promote admin account: %w", err)
	}

	slogx.FromContext(ctx).Info("seeded initial administrator",
		"account_id", account.ID,
		"username", username,
	)
	return true, nil
}
