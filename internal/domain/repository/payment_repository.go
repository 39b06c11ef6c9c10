package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// PaymentRepository port de persistance des paiements (append-only + delete).
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	// GetScoped combine id et clinic_id dans la même requête: mauvaise clinique
	// et absence produisent le même résultat (nil, nil).
	GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Payment, error)
	Delete(ctx context.Context, id string) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error)
	// SumByInvoice agrège au niveau SQL la somme des paiements d'une facture.
	SumByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error)
}
