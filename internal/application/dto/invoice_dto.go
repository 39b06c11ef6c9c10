package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// CreateInvoiceRequest body de POST /api/invoices. La clinique n'est pas un
// champ: elle est héritée du patient.
type CreateInvoiceRequest struct {
	PatientID    string                     `json:"patient_id"`
	Lines        []CreateInvoiceLineRequest `json:"lines"`
	Comment      string                     `json:"comment,omitempty"`
	ModePayment  string                     `json:"mode_payment,omitempty"`
	OperationIDs []string                   `json:"operation_ids,omitempty"`
}

// CreateInvoiceLineRequest ligne de facture (produit, quantité, prix, remise).
type CreateInvoiceLineRequest struct {
	ProductID     string          `json:"product_id"`
	Qty           int64           `json:"qty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Discount      decimal.Decimal `json:"discount,omitempty"`       // pourcentage
	TaxSpecifique decimal.Decimal `json:"tax_specifique,omitempty"` // surtaxe ligne
}

// CancelInvoiceRequest body de POST /api/invoices/:id/cancel.
type CancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

// InvoiceResponse facture avec détail pour GET /api/invoices/:id.
type InvoiceResponse struct {
	ID            string                `json:"id"`
	ClinicID      string                `json:"clinic_id"`
	PatientID     string                `json:"patient_id"`
	Number        string                `json:"number"`
	DateEmission  time.Time             `json:"date_emission"`
	TotalHT       decimal.Decimal       `json:"total_ht"`
	TotalTax      decimal.Decimal       `json:"total_tax"`
	TotalDiscount decimal.Decimal       `json:"total_discount"`
	TotalTTC      decimal.Decimal       `json:"total_ttc"`
	AmountPaid    decimal.Decimal       `json:"amount_paid"`
	Remaining     decimal.Decimal       `json:"remaining"`
	Status        string                `json:"status"`
	Normalized    bool                  `json:"normalized"`
	ModePayment   string                `json:"mode_payment,omitempty"`
	Comment       string                `json:"comment,omitempty"`
	Lines         []InvoiceLineResponse `json:"lines,omitempty"`
	Payments      []PaymentResponse     `json:"payments,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// InvoiceLineResponse ligne de facture dans les réponses.
type InvoiceLineResponse struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	Qty           int64           `json:"qty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	TaxSpecifique decimal.Decimal `json:"tax_specifique"`
	Total         decimal.Decimal `json:"total"`
}

// InvoiceListResponse page de factures.
type InvoiceListResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
	PageResponse
}

// ToInvoiceResponse convertit l'entité en réponse API.
func ToInvoiceResponse(inv *entity.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID,
		ClinicID:      inv.ClinicID,
		PatientID:     inv.PatientID,
		Number:        inv.Number,
		DateEmission:  inv.DateEmission,
		TotalHT:       inv.TotalHT,
		TotalTax:      inv.TotalTax,
		TotalDiscount: inv.TotalDiscount,
		TotalTTC:      inv.TotalTTC,
		AmountPaid:    inv.AmountPaid,
		Remaining:     inv.Remaining(),
		Status:        inv.Status,
		Normalized:    inv.Normalized,
		ModePayment:   inv.ModePayment,
		Comment:       inv.Comment,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	for _, line := range inv.Lines {
		resp.Lines = append(resp.Lines, InvoiceLineResponse{
			ID:            line.ID,
			ProductID:     line.ProductID,
			Qty:           line.Qty,
			UnitPrice:     line.UnitPrice,
			Discount:      line.Discount,
			Tax:           line.Tax,
			TaxSpecifique: line.TaxSpecifique,
			Total:         line.Total,
		})
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, ToPaymentResponse(p))
	}
	return resp
}

// ReliquatResponse facture avec solde restant dû pour GET /api/reliquats.
type ReliquatResponse struct {
	InvoiceID    string          `json:"invoice_id"`
	Number       string          `json:"number"`
	PatientID    string          `json:"patient_id"`
	TotalTTC     decimal.Decimal `json:"total_ttc"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	Remaining    decimal.Decimal `json:"remaining"`
	Status       string          `json:"status"`
	DateEmission time.Time       `json:"date_emission"`
}

// ReliquatListResponse liste des reliquats avec l'encours total.
type ReliquatListResponse struct {
	Reliquats []ReliquatResponse `json:"reliquats"`
	Total     decimal.Decimal    `json:"total"`
}
