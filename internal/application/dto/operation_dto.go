package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// CreateOperationRequest body de POST /api/operations.
type CreateOperationRequest struct {
	PatientID string                       `json:"patient_id"`
	Lines     []CreateOperationLineRequest `json:"lines"`
}

// CreateOperationLineRequest ligne d'acte.
type CreateOperationLineRequest struct {
	ProductID string          `json:"product_id"`
	Qty       int64           `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OperationResponse acte clinique dans les réponses.
type OperationResponse struct {
	ID        string                  `json:"id"`
	ClinicID  string                  `json:"clinic_id"`
	PatientID string                  `json:"patient_id"`
	Reference string                  `json:"reference"`
	InvoiceID string                  `json:"invoice_id,omitempty"`
	Status    string                  `json:"status"`
	Lines     []OperationLineResponse `json:"lines,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// OperationLineResponse ligne d'acte dans les réponses.
type OperationLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Qty       int64           `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// ToOperationResponse convertit l'entité en réponse API.
func ToOperationResponse(op *entity.Operation) OperationResponse {
	resp := OperationResponse{
		ID:        op.ID,
		ClinicID:  op.ClinicID,
		PatientID: op.PatientID,
		Reference: op.Reference,
		InvoiceID: op.InvoiceID,
		Status:    op.Status,
		CreatedAt: op.CreatedAt,
		UpdatedAt: op.UpdatedAt,
	}
	for _, line := range op.Lines {
		resp.Lines = append(resp.Lines, OperationLineResponse{
			ID:        line.ID,
			ProductID: line.ProductID,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
			Total:     line.Total,
		})
	}
	return resp
}
