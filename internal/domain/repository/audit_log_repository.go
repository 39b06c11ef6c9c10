package repository

import (
	"context"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// AuditLogRepository port de persistance des logs d'audit.
type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
	List(ctx context.Context, filters AuditLogFilters) ([]*entity.AuditLog, int, error)
}
