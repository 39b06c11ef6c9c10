package entity

import (
	"encoding/json"
	"time"
)

// Actions auditées sur les factures.
const (
	AuditActionCreate    = "CREATE"
	AuditActionNormalize = "NORMALIZE"
	AuditActionCancel    = "CANCEL"
	AuditActionPrint     = "PRINT"
	AuditActionDelete    = "DELETE"
)

// AuditLog snapshot avant/après d'une mutation métier. L'écriture est
// best-effort: un échec d'audit ne doit jamais annuler l'opération auditée.
type AuditLog struct {
	ID        string
	UserID    string
	Entity    string // INVOICE, PAYMENT, OPERATION...
	EntityID  string
	Action    string
	OldValue  json.RawMessage
	NewValue  json.RawMessage
	InvoiceID string
	Timestamp time.Time
}
