package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implémentation de InvoiceRepository (utilisable avec pool ou tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, clinic_id, patient_id, number, date_emission,
	total_ht, total_tax, total_discount, total_ttc, amount_paid,
	status, normalized, COALESCE(mode_payment, ''), COALESCE(comment, ''),
	COALESCE(created_by, ''), created_at, updated_at`

// Create persiste l'en-tête de la facture.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (id, clinic_id, patient_id, number, date_emission,
			total_ht, total_tax, total_discount, total_ttc, amount_paid,
			status, normalized, mode_payment, comment, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.ClinicID, invoice.PatientID, invoice.Number, invoice.DateEmission,
		invoice.TotalHT, invoice.TotalTax, invoice.TotalDiscount, invoice.TotalTTC, invoice.AmountPaid,
		invoice.Status, invoice.Normalized, nullIfEmpty(invoice.ModePayment), nullIfEmpty(invoice.Comment),
		nullIfEmpty(invoice.CreatedBy), invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("numéro de facture %s: %w", invoice.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateLine persiste une ligne de facture.
func (r *InvoiceRepo) CreateLine(ctx context.Context, line *entity.InvoiceLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_lines (id, invoice_id, product_id, qty, unit_price, discount, tax, tax_specifique, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		line.ID, line.InvoiceID, line.ProductID, line.Qty, line.UnitPrice,
		line.Discount, line.Tax, line.TaxSpecifique, line.Total,
	)
	if err != nil {
		return fmt.Errorf("insert invoice line: %w", err)
	}
	return nil
}

// GetByID lecture interne sans filtre tenant.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetScoped combine id et clinic_id dans la même requête: une facture d'une
// autre clinique est indistinguable d'une facture absente.
func (r *InvoiceRepo) GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	args := []any{id}
	if scope.Filtered() {
		query += ` AND clinic_id = $2`
		args = append(args, scope.ClinicID)
	}
	return r.scanOne(r.q.QueryRow(ctx, query, args...))
}

// GetLines charge toutes les lignes d'une facture.
func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	query := `
		SELECT id, invoice_id, product_id, qty, unit_price, discount, tax, tax_specifique, total
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	var lines []*entity.InvoiceLine
	for rows.Next() {
		var l entity.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Qty, &l.UnitPrice,
			&l.Discount, &l.Tax, &l.TaxSpecifique, &l.Total); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// List liste les factures du scope avec filtres et pagination, plus le total.
func (r *InvoiceRepo) List(ctx context.Context, scope domain.TenantScope, filters repository.InvoiceListFilters) ([]*entity.Invoice, int, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if scope.Filtered() {
		conds = append(conds, "clinic_id = "+arg(scope.ClinicID))
	}
	if filters.Status != "" {
		conds = append(conds, "status = "+arg(filters.Status))
	}
	if filters.PatientID != "" {
		conds = append(conds, "patient_id = "+arg(filters.PatientID))
	}
	if filters.StartDate != nil {
		conds = append(conds, "date_emission >= "+arg(*filters.StartDate))
	}
	if filters.EndDate != nil {
		conds = append(conds, "date_emission <= "+arg(*filters.EndDate))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM invoices"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where +
		` ORDER BY date_emission DESC, number DESC` +
		` LIMIT ` + arg(filters.Limit) + ` OFFSET ` + arg(filters.Offset())
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	invoices, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// ListByStatuses liste les factures du scope dans les statuts donnés
// (réconciliation de reliquats).
func (r *InvoiceRepo) ListByStatuses(ctx context.Context, scope domain.TenantScope, statuses []string, filters repository.ReliquatFilters) ([]*entity.Invoice, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	conds = append(conds, "status = ANY("+arg(statuses)+")")
	if scope.Filtered() {
		conds = append(conds, "clinic_id = "+arg(scope.ClinicID))
	}
	if filters.PatientID != "" {
		conds = append(conds, "patient_id = "+arg(filters.PatientID))
	}
	if filters.StartDate != nil {
		conds = append(conds, "date_emission >= "+arg(*filters.StartDate))
	}
	if filters.EndDate != nil {
		conds = append(conds, "date_emission <= "+arg(*filters.EndDate))
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date_emission ASC`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices by statuses: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// UpdateTotals réécrit les quatre agrégats et le drapeau normalized.
func (r *InvoiceRepo) UpdateTotals(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET total_ht = $2, total_tax = $3, total_discount = $4, total_ttc = $5,
		    normalized = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.TotalHT, invoice.TotalTax, invoice.TotalDiscount,
		invoice.TotalTTC, invoice.Normalized, invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("facture %s: %w", invoice.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateStatus pose statut et montant payé recalculés.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id, status string, amountPaid decimal.Decimal) error {
	query := `UPDATE invoices SET status = $2, amount_paid = $3, updated_at = NOW() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, status, amountPaid)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("facture %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateCancelled pose le statut ANNULEE et le commentaire enrichi.
func (r *InvoiceRepo) UpdateCancelled(ctx context.Context, id, comment string) error {
	query := `UPDATE invoices SET status = $2, comment = $3, updated_at = NOW() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, entity.InvoiceStatusAnnulee, nullIfEmpty(comment))
	if err != nil {
		return fmt.Errorf("cancel invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("facture %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// LastNumberWithPrefix retourne le plus haut numéro du périmètre, "" si aucun.
func (r *InvoiceRepo) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	query := `SELECT number FROM invoices WHERE number LIKE $1 || '%' ORDER BY number DESC LIMIT 1`
	var number string
	err := r.q.QueryRow(ctx, query, prefix).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("last invoice number: %w", err)
	}
	return number, nil
}

// NumberExists vérifie l'existence d'un numéro de facture.
func (r *InvoiceRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM invoices WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("invoice number exists: %w", err)
	}
	return exists, nil
}

func (r *InvoiceRepo) scanOne(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(
		&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.Number, &inv.DateEmission,
		&inv.TotalHT, &inv.TotalTax, &inv.TotalDiscount, &inv.TotalTTC, &inv.AmountPaid,
		&inv.Status, &inv.Normalized, &inv.ModePayment, &inv.Comment,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepo) scanAll(rows pgx.Rows) ([]*entity.Invoice, error) {
	var invoices []*entity.Invoice
	for rows.Next() {
		var inv entity.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.Number, &inv.DateEmission,
			&inv.TotalHT, &inv.TotalTax, &inv.TotalDiscount, &inv.TotalTTC, &inv.AmountPaid,
			&inv.Status, &inv.Normalized, &inv.ModePayment, &inv.Comment,
			&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, &inv)
	}
	return invoices, rows.Err()
}
