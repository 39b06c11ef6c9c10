package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implémentation de ProductRepository (utilisable avec pool ou tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, clinic_id, label, category, unit_price, tax_percent, stock_qty, created_at, updated_at`

// Create persiste un produit.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	query := `
		INSERT INTO products (id, clinic_id, label, category, unit_price, tax_percent, stock_qty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.ClinicID, product.Label, product.Category,
		product.UnitPrice, product.TaxPercent, product.StockQty,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("produit %s: %w", product.Label, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID lecture interne sans filtre tenant.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetByIDs charge un lot de produits; les ids absents sont omis.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// GetScoped combine id et clinic_id dans la même requête.
func (r *ProductRepo) GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	args := []any{id}
	if scope.Filtered() {
		query += ` AND clinic_id = $2`
		args = append(args, scope.ClinicID)
	}
	return r.scanOne(r.q.QueryRow(ctx, query, args...))
}

// List liste les produits du scope.
func (r *ProductRepo) List(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if scope.Filtered() {
		query += ` WHERE clinic_id = $1`
		args = append(args, scope.ClinicID)
	}
	query += fmt.Sprintf(` ORDER BY label LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Update réécrit les champs modifiables d'un produit.
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products
		SET label = $2, category = $3, unit_price = $4, tax_percent = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		product.ID, product.Label, product.Category, product.UnitPrice,
		product.TaxPercent, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("produit %s: %w", product.ID, domain.ErrNotFound)
	}
	return nil
}

// DecrementStock retire qty du stock avec un garde SQL: la ligne n'est
// touchée que si stock_qty >= qty, le stock ne passe donc jamais sous zéro
// même sous concurrence.
func (r *ProductRepo) DecrementStock(ctx context.Context, productID string, qty int64) error {
	query := `
		UPDATE products SET stock_qty = stock_qty - $2, updated_at = NOW()
		WHERE id = $1 AND stock_qty >= $2`
	tag, err := r.q.Exec(ctx, query, productID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// IncrementStock restaure qty (annulation de facture).
func (r *ProductRepo) IncrementStock(ctx context.Context, productID string, qty int64) error {
	query := `UPDATE products SET stock_qty = stock_qty + $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, productID, qty)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("produit %s: %w", productID, domain.ErrNotFound)
	}
	return nil
}

func (r *ProductRepo) scanOne(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.ClinicID, &p.Label, &p.Category, &p.UnitPrice,
		&p.TaxPercent, &p.StockQty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepo) scanAll(rows pgx.Rows) ([]*entity.Product, error) {
	var products []*entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.Label, &p.Category, &p.UnitPrice,
			&p.TaxPercent, &p.StockQty, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}
