package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
	"github.com/tidianefall/cliniq-api/pkg/logger"
)

// OperationLineInput ligne d'acte de la demande de création.
type OperationLineInput struct {
	ProductID string
	Qty       int64
	UnitPrice decimal.Decimal
}

// CreateOperationInput demande de création d'opération. Comme pour les
// factures, le tenant est hérité du patient.
type CreateOperationInput struct {
	PatientID string
	Lines     []OperationLineInput
	CreatedBy string
}

// OperationService crée et consulte les actes cliniques. Les références
// suivent le périmètre journalier OP-DD-MM-YYYY-NNN.
type OperationService struct {
	tx         TxRunner
	retry      Retryer
	patients   repository.PatientRepository
	operations repository.OperationRepository
	numbers    *SequenceNumberGenerator
	log        *logger.Logger
}

// NewOperationService construit le service des opérations.
func NewOperationService(
	tx TxRunner,
	retry Retryer,
	patients repository.PatientRepository,
	operations repository.OperationRepository,
	numbers *SequenceNumberGenerator,
	log *logger.Logger,
) *OperationService {
	return &OperationService{
		tx:         tx,
		retry:      retry,
		patients:   patients,
		operations: operations,
		numbers:    numbers,
		log:        log,
	}
}

// CreateOperation crée un acte avec ses lignes et lui attribue une référence
// journalière unique. Le statut initial est EN_ATTENTE.
func (s *OperationService) CreateOperation(ctx context.Context, scope domain.TenantScope, in CreateOperationInput) (*entity.Operation, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if in.PatientID == "" || len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, line := range in.Lines {
		if line.ProductID == "" || line.Qty <= 0 || line.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
	}

	var created *entity.Operation
	err := withRetry(s.retry, ctx, func(ctx context.Context) error {
		patient, err := s.patients.GetByID(ctx, in.PatientID)
		if err != nil {
			return err
		}
		if patient == nil {
			return fmt.Errorf("patient %s: %w", in.PatientID, domain.ErrNotFound)
		}
		if scope.Filtered() && scope.ClinicID != patient.ClinicID {
			return domain.ErrClinicMismatch
		}

		for attempt := 0; attempt < maxCreateAttempts; attempt++ {
			reference, err := s.numbers.OperationReference(ctx)
			if err != nil {
				return err
			}
			op, err := s.createTx(ctx, patient, reference, in)
			if err == nil {
				created = op
				return nil
			}
			if errors.Is(err, domain.ErrDuplicate) {
				continue
			}
			return err
		}
		return fmt.Errorf("création d'opération: %w", domain.ErrDuplicate)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *OperationService) createTx(ctx context.Context, patient *entity.Patient, reference string, in CreateOperationInput) (*entity.Operation, error) {
	now := time.Now()
	op := &entity.Operation{
		ID:        uuid.New().String(),
		ClinicID:  patient.ClinicID,
		PatientID: patient.ID,
		Reference: reference,
		Status:    entity.OperationStatusEnAttente,
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, line := range in.Lines {
		qty := decimal.NewFromInt(line.Qty)
		op.Lines = append(op.Lines, &entity.OperationLine{
			ID:          uuid.New().String(),
			OperationID: op.ID,
			ProductID:   line.ProductID,
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
			Total:       line.UnitPrice.Mul(qty),
		})
	}

	err := s.tx.Run(ctx, func(r Repos) error {
		if err := r.Operations.Create(ctx, op); err != nil {
			return err
		}
		for _, line := range op.Lines {
			if err := r.Operations.CreateLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// GetOperation charge un acte et ses lignes, dans le scope de l'appelant.
func (s *OperationService) GetOperation(ctx context.Context, scope domain.TenantScope, id string) (*entity.Operation, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var op *entity.Operation
	err := withRetry(s.retry, ctx, func(ctx context.Context) error {
		found, err := s.operations.GetScoped(ctx, scope, id)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("opération %s: %w", id, domain.ErrNotFound)
		}
		if found.Lines, err = s.operations.GetLines(ctx, id); err != nil {
			return err
		}
		op = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// ListOperations liste les actes du scope, du plus récent au plus ancien.
func (s *OperationService) ListOperations(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Operation, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var ops []*entity.Operation
	err := withRetry(s.retry, ctx, func(ctx context.Context) error {
		var err error
		ops, err = s.operations.List(ctx, scope, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}
