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

var _ repository.OperationRepository = (*OperationRepo)(nil)

// OperationRepo implémentation de OperationRepository (utilisable avec pool ou tx).
type OperationRepo struct {
	q Querier
}

// NewOperationRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewOperationRepository(q Querier) *OperationRepo {
	return &OperationRepo{q: q}
}

const operationColumns = `id, clinic_id, patient_id, reference, COALESCE(invoice_id, ''), status, COALESCE(created_by, ''), created_at, updated_at`

// Create persiste un acte.
func (r *OperationRepo) Create(ctx context.Context, op *entity.Operation) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	query := `
		INSERT INTO operations (id, clinic_id, patient_id, reference, invoice_id, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		op.ID, op.ClinicID, op.PatientID, op.Reference, nullIfEmpty(op.InvoiceID),
		op.Status, nullIfEmpty(op.CreatedBy), op.CreatedAt, op.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("référence d'opération %s: %w", op.Reference, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// CreateLine persiste une ligne d'acte.
func (r *OperationRepo) CreateLine(ctx context.Context, line *entity.OperationLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	query := `
		INSERT INTO operation_lines (id, operation_id, product_id, qty, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		line.ID, line.OperationID, line.ProductID, line.Qty, line.UnitPrice, line.Total,
	)
	if err != nil {
		return fmt.Errorf("insert operation line: %w", err)
	}
	return nil
}

// GetByID lecture interne sans filtre tenant.
func (r *OperationRepo) GetByID(ctx context.Context, id string) (*entity.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetScoped combine id et clinic_id dans la même requête.
func (r *OperationRepo) GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1`
	args := []any{id}
	if scope.Filtered() {
		query += ` AND clinic_id = $2`
		args = append(args, scope.ClinicID)
	}
	return r.scanOne(r.q.QueryRow(ctx, query, args...))
}

// GetLines charge les lignes d'un acte.
func (r *OperationRepo) GetLines(ctx context.Context, operationID string) ([]*entity.OperationLine, error) {
	query := `
		SELECT id, operation_id, product_id, qty, unit_price, total
		FROM operation_lines WHERE operation_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, operationID)
	if err != nil {
		return nil, fmt.Errorf("list operation lines: %w", err)
	}
	defer rows.Close()
	var lines []*entity.OperationLine
	for rows.Next() {
		var l entity.OperationLine
		if err := rows.Scan(&l.ID, &l.OperationID, &l.ProductID, &l.Qty, &l.UnitPrice, &l.Total); err != nil {
			return nil, fmt.Errorf("scan operation line: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// List liste les actes du scope, du plus récent au plus ancien.
func (r *OperationRepo) List(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations`
	args := []any{}
	if scope.Filtered() {
		query += ` WHERE clinic_id = $1`
		args = append(args, scope.ClinicID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()
	var ops []*entity.Operation
	for rows.Next() {
		var op entity.Operation
		if err := rows.Scan(&op.ID, &op.ClinicID, &op.PatientID, &op.Reference, &op.InvoiceID,
			&op.Status, &op.CreatedBy, &op.CreatedAt, &op.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

// LinkInvoice rattache un lot d'actes à une facture.
func (r *OperationRepo) LinkInvoice(ctx context.Context, operationIDs []string, invoiceID string) error {
	if len(operationIDs) == 0 {
		return nil
	}
	query := `UPDATE operations SET invoice_id = $2, updated_at = NOW() WHERE id = ANY($1)`
	_, err := r.q.Exec(ctx, query, operationIDs, invoiceID)
	if err != nil {
		return fmt.Errorf("link operations: %w", err)
	}
	return nil
}

// MarkPaidByInvoice passe toutes les opérations liées en PAYEE.
func (r *OperationRepo) MarkPaidByInvoice(ctx context.Context, invoiceID string) error {
	query := `UPDATE operations SET status = $2, updated_at = NOW() WHERE invoice_id = $1`
	_, err := r.q.Exec(ctx, query, invoiceID, entity.OperationStatusPayee)
	if err != nil {
		return fmt.Errorf("mark operations paid: %w", err)
	}
	return nil
}

// MarkRestantByInvoice passe les opérations liées non PAYEE en RESTANT.
func (r *OperationRepo) MarkRestantByInvoice(ctx context.Context, invoiceID string) error {
	query := `UPDATE operations SET status = $2, updated_at = NOW() WHERE invoice_id = $1 AND status <> $3`
	_, err := r.q.Exec(ctx, query, invoiceID, entity.OperationStatusRestant, entity.OperationStatusPayee)
	if err != nil {
		return fmt.Errorf("mark operations restant: %w", err)
	}
	return nil
}

// LastReferenceWithPrefix retourne la plus haute référence du périmètre, "" si aucune.
func (r *OperationRepo) LastReferenceWithPrefix(ctx context.Context, prefix string) (string, error) {
	query := `SELECT reference FROM operations WHERE reference LIKE $1 || '%' ORDER BY reference DESC LIMIT 1`
	var reference string
	err := r.q.QueryRow(ctx, query, prefix).Scan(&reference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("last operation reference: %w", err)
	}
	return reference, nil
}

// ReferenceExists vérifie l'existence d'une référence d'opération.
func (r *OperationRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM operations WHERE reference = $1)`, reference).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("operation reference exists: %w", err)
	}
	return exists, nil
}

func (r *OperationRepo) scanOne(row pgx.Row) (*entity.Operation, error) {
	var op entity.Operation
	err := row.Scan(&op.ID, &op.ClinicID, &op.PatientID, &op.Reference, &op.InvoiceID,
		&op.Status, &op.CreatedBy, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get operation: %w", err)
	}
	return &op, nil
}
