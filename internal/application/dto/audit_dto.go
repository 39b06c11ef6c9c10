package dto

import (
	"encoding/json"
	"time"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// AuditLogResponse log d'audit dans les réponses.
type AuditLogResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Action    string          `json:"action"`
	OldValue  json.RawMessage `json:"old_value,omitempty"`
	NewValue  json.RawMessage `json:"new_value,omitempty"`
	InvoiceID string          `json:"invoice_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// AuditLogListResponse page de logs d'audit.
type AuditLogListResponse struct {
	Logs []AuditLogResponse `json:"logs"`
	PageResponse
}

// ToAuditLogResponse convertit l'entité en réponse API.
func ToAuditLogResponse(l *entity.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:        l.ID,
		UserID:    l.UserID,
		Entity:    l.Entity,
		EntityID:  l.EntityID,
		Action:    l.Action,
		OldValue:  l.OldValue,
		NewValue:  l.NewValue,
		InvoiceID: l.InvoiceID,
		Timestamp: l.Timestamp,
	}
}
