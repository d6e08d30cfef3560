package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/cryptox"
	"github.com/tovera/authcore/pkg/idx"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// SessionService mints and resolves the opaque bearer tokens handed out at
// the HTTP edge once the login machine reaches Authenticated. Only token
// fingerprints are stored.
type SessionService struct {
	Store store.Store
	TTL   time.Duration
}

// Issue creates a session and returns the presentable token. The token is
// never reconstructable from stored state.
func (s *SessionService) Issue(ctx context.Context, accountID string) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now().UTC()
	err = s.Store.Sessions().CreateSession(ctx, domain.Session{
		ID:        idx.New().String(),
		AccountID: accountID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// Resolve returns the session behind a presented token.
func (s *SessionService) Resolve(ctx context.Context, token string) (domain.Session, error) {
	sess, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrInvalidSession
		}
		return domain.Session{}, fmt.Errorf("failed to look up session: %w", err)
	}
	return sess, nil
}

// RevokeAll drops every session of one account, e.g. after a password change.
func (s *SessionService) RevokeAll(ctx context.Context, accountID string) error {
	return s.Store.Sessions().DeleteSessionsForAccount(ctx, accountID)
}
