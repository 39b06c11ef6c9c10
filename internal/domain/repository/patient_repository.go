package repository

import (
	"context"

	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// PatientRepository port de persistance des patients.
// GetByID retourne nil, nil si le patient n'existe pas.
type PatientRepository interface {
	Create(ctx context.Context, patient *entity.Patient) error
	GetByID(ctx context.Context, id string) (*entity.Patient, error)
	// GetScoped combine id et clinic_id dans la même requête: mauvaise clinique
	// et absence produisent le même résultat (nil, nil).
	GetScoped(ctx context.Context, scope domain.TenantScope, id string) (*entity.Patient, error)
	List(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Patient, error)
}
