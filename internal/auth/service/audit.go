package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/idx"
)

// AuditService appends immutable security-event records. Entries are written
// through whatever store the caller hands in, so services can include them in
// the same transaction as the mutation they describe.
type AuditService struct {
	Store store.Store
}

// Record appends one audit entry attributed to actorID.
func (s *AuditService) Record(ctx context.Context, st store.Store, actorID, action, detail string) error {
	entry := domain.AuditLogEntry{
		ID:        idx.New().String(),
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.AuditLog().AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// RecentByActor lists an actor's latest entries, newest first.
func (s *AuditService) RecentByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditLogEntry, error) {
	return s.Store.AuditLog().ListAuditByActor(ctx, actorID, limit)
}
