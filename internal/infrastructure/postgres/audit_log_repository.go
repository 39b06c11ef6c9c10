package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

var (
	_ repository.AuditLogRepository = (*AuditLogRepo)(nil)
	_ billing.AuditSink             = (*AuditLogRepo)(nil)
)

// AuditLogRepo implémentation de AuditLogRepository. Sert aussi d'AuditSink
// pour les cas d'usage de facturation.
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Create persiste un log d'audit.
func (r *AuditLogRepo) Create(ctx context.Context, log *entity.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	query := `
		INSERT INTO audit_logs (id, user_id, entity, entity_id, action, old_value, new_value, invoice_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		log.ID, log.UserID, log.Entity, log.EntityID, log.Action,
		log.OldValue, log.NewValue, nullIfEmpty(log.InvoiceID), log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// Record implémente billing.AuditSink.
func (r *AuditLogRepo) Record(ctx context.Context, entry *entity.AuditLog) error {
	return r.Create(ctx, entry)
}

// List liste les logs d'audit avec filtres et pagination.
func (r *AuditLogRepo) List(ctx context.Context, filters repository.AuditLogFilters) ([]*entity.AuditLog, int, error) {
	filters.Normalize()
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filters.UserID != "" {
		conds = append(conds, "user_id = "+arg(filters.UserID))
	}
	if filters.Entity != "" {
		conds = append(conds, "entity = "+arg(filters.Entity))
	}
	if filters.EntityID != "" {
		conds = append(conds, "entity_id = "+arg(filters.EntityID))
	}
	if filters.Action != "" {
		conds = append(conds, "action = "+arg(filters.Action))
	}
	if filters.StartDate != nil {
		conds = append(conds, "timestamp >= "+arg(*filters.StartDate))
	}
	if filters.EndDate != nil {
		conds = append(conds, "timestamp <= "+arg(*filters.EndDate))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	query := `
		SELECT id, user_id, entity, entity_id, action, old_value, new_value, COALESCE(invoice_id, ''), timestamp
		FROM audit_logs` + where + `
		ORDER BY timestamp DESC
		LIMIT ` + arg(filters.Limit) + ` OFFSET ` + arg((filters.Page-1)*filters.Limit)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()
	var logs []*entity.AuditLog
	for rows.Next() {
		var l entity.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Entity, &l.EntityID, &l.Action,
			&l.OldValue, &l.NewValue, &l.InvoiceID, &l.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
