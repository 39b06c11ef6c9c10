package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo implémentation de PaymentRepository (utilisable avec pool ou tx).
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

const paymentColumns = `id, invoice_id, clinic_id, amount, method, COALESCE(reference, ''), COALESCE(created_by, ''), created_at`

// Create persiste un paiement.
func (r *PaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	query := `
		INSERT INTO payments (id, invoice_id, clinic_id, amount, method, reference, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		payment.ID, payment.InvoiceID, payment.ClinicID, payment.Amount, payment.Method,
		nullIfEmpty(payment.Reference), nullIfEmpty(payment.CreatedBy), payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID charge un paiement.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	var p entity.Payment
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.InvoiceID, &p.ClinicID, &p.Amount, &p.Method,
		&p.Reference, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

// GetScoped combine id et clinic_id dans la même requête: un paiement d'une
// autre clinique est indistinguable d'un paiement absent.
func (r *PaymentRepo) GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	args := []any{id}
	if scope.Filtered() {
		query += ` AND clinic_id = $2`
		args = append(args, scope.ClinicID)
	}
	var p entity.Payment
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.InvoiceID, &p.ClinicID, &p.Amount, &p.Method,
		&p.Reference, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

// Delete supprime un paiement.
func (r *PaymentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("paiement %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByInvoice liste les paiements d'une facture, du plus ancien au plus récent.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	var payments []*entity.Payment
	for rows.Next() {
		var p entity.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.ClinicID, &p.Amount, &p.Method,
			&p.Reference, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// SumByInvoice agrège la somme des paiements d'une facture au niveau SQL.
func (r *PaymentRepo) SumByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, invoiceID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}
