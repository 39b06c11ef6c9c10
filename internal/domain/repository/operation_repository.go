package repository

import (
	"context"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// OperationRepository port de persistance des opérations cliniques.
type OperationRepository interface {
	Create(ctx context.Context, op *entity.Operation) error
	CreateLine(ctx context.Context, line *entity.OperationLine) error
	GetByID(ctx context.Context, id string) (*entity.Operation, error)
	GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Operation, error)
	GetLines(ctx context.Context, operationID string) ([]*entity.OperationLine, error)
	List(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Operation, error)
	// LinkInvoice rattache un lot d'opérations à une facture (best-effort, même tx).
	LinkInvoice(ctx context.Context, operationIDs []string, invoiceID string) error
	// MarkPaidByInvoice passe toutes les opérations liées en PAYEE.
	MarkPaidByInvoice(ctx context.Context, invoiceID string) error
	// MarkRestantByInvoice passe les opérations liées non PAYEE en RESTANT.
	MarkRestantByInvoice(ctx context.Context, invoiceID string) error
	// LastReferenceWithPrefix et ReferenceExists servent le fallback de numérotation.
	LastReferenceWithPrefix(ctx context.Context, prefix string) (string, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
}
