package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitfair/splitfair/internal/models"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs(id, entity_type, entity_id, action, details)
		 VALUES($1, $2, $3, $4, $5)`,
		uuid.NewString(), l.EntityType, l.EntityID, l.Action, l.Details)
	return mapErr(err, "audit log not found")
}
