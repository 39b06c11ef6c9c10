package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// CreatePaymentRequest body de POST /api/invoices/:id/payments.
type CreatePaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
}

// PaymentResponse paiement dans les réponses.
type PaymentResponse struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	CreatedBy string          `json:"created_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentResultResponse paiement créé + facture recalculée.
type PaymentResultResponse struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
}

// ToPaymentResponse convertit l'entité en réponse API.
func ToPaymentResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		InvoiceID: p.InvoiceID,
		Amount:    p.Amount,
		Method:    p.Method,
		Reference: p.Reference,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}
