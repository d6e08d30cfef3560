package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tovera/authcore/internal/auth/domain"
)

type auditLogRepo struct {
	q queryer
}

type auditRow struct {
	ID        string    `db:"id"`
	ActorID   string    `db:"actor_id"`
	Action    string    `db:"action"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *auditLogRepo) AppendAudit(ctx context.Context, e domain.AuditLogEntry) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_log (id, actor_id, action, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.ActorID, e.Action, e.Detail, e.CreatedAt)
	return err
}

func (r *auditLogRepo) ListAuditByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditLogEntry, error) {
	var rows []auditRow
	err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT id, actor_id, action, detail, created_at
		 FROM audit_log
		 WHERE actor_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, actorID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AuditLogEntry{
			ID:        row.ID,
			ActorID:   row.ActorID,
			Action:    row.Action,
			Detail:    row.Detail,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
