package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// InvoiceRepository port de persistance des factures et de leurs lignes.
// Les lectures retournent nil, nil quand la facture n'existe pas.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateLine(ctx context.Context, line *entity.InvoiceLine) error
	// GetByID lecture interne sans filtre tenant (recalculs de statut).
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// GetScoped combine id et clinic_id dans la même requête.
	GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Invoice, error)
	GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error)
	List(ctx context.Context, scope domain.TenantScope, filters InvoiceListFilters) ([]*entity.Invoice, int, error)
	// ListByStatuses sert le réconciliateur de reliquats.
	ListByStatuses(ctx context.Context, scope domain.TenantScope, statuses []string, filters ReliquatFilters) ([]*entity.Invoice, error)
	// UpdateTotals réécrit les quatre agrégats et le drapeau normalized.
	UpdateTotals(ctx context.Context, invoice *entity.Invoice) error
	UpdateStatus(ctx context.Context, id, status string, amountPaid decimal.Decimal) error
	// UpdateCancelled pose le statut ANNULEE et le commentaire enrichi.
	UpdateCancelled(ctx context.Context, id, comment string) error
	// LastNumberWithPrefix retourne le numéro le plus haut (tri lexical) commençant
	// par prefix, ou "" s'il n'y en a pas. Sert le fallback de numérotation.
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}
