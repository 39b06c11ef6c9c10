package repository

import (
	"context"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// ProductRepository port de persistance des produits et de leur stock.
// Les mutations de stock sont gardées au niveau SQL: DecrementStock échoue avec
// domain.ErrInsufficientStock plutôt que de laisser le stock passer sous zéro.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDs charge un lot de produits; les ids absents sont simplement omis.
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Product, error)
	GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Product, error)
	List(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	// DecrementStock retire qty du stock avec un garde stock_qty >= qty.
	DecrementStock(ctx context.Context, productID string, qty int64) error
	// IncrementStock restaure qty (annulation de facture).
	IncrementStock(ctx context.Context, productID string, qty int64) error
}
