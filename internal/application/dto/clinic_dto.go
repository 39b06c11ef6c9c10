package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// CreateClinicRequest body de POST /api/clinics (super_admin).
type CreateClinicRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ClinicResponse clinique dans les réponses.
type ClinicResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToClinicResponse convertit l'entité en réponse API.
func ToClinicResponse(c *entity.Clinic) ClinicResponse {
	return ClinicResponse{
		ID:        c.ID,
		Code:      c.Code,
		Name:      c.Name,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

// CreatePatientRequest body de POST /api/patients.
type CreatePatientRequest struct {
	ClinicID  string `json:"clinic_id,omitempty"` // requis seulement pour un super_admin
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// PatientResponse patient dans les réponses.
type PatientResponse struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPatientResponse convertit l'entité en réponse API.
func ToPatientResponse(p *entity.Patient) PatientResponse {
	return PatientResponse{
		ID:        p.ID,
		ClinicID:  p.ClinicID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
	}
}

// CreateProductRequest body de POST /api/products.
type CreateProductRequest struct {
	ClinicID   string          `json:"clinic_id,omitempty"` // requis seulement pour un super_admin
	Label      string          `json:"label"`
	Category   string          `json:"category"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TaxPercent decimal.Decimal `json:"tax_percent,omitempty"`
	StockQty   int64           `json:"stock_qty,omitempty"`
}

// ProductResponse produit dans les réponses.
type ProductResponse struct {
	ID         string          `json:"id"`
	ClinicID   string          `json:"clinic_id"`
	Label      string          `json:"label"`
	Category   string          `json:"category"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
	StockQty   int64           `json:"stock_qty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ToProductResponse convertit l'entité en réponse API.
func ToProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		ClinicID:   p.ClinicID,
		Label:      p.Label,
		Category:   p.Category,
		UnitPrice:  p.UnitPrice,
		TaxPercent: p.TaxPercent,
		StockQty:   p.StockQty,
		CreatedAt:  p.CreatedAt,
	}
}
