package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
	"github.com/tidianefall/cliniq-api/internal/application/dto"
	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

// RegistryUseCase gère les référentiels: cliniques, patients, produits.
// Le tenant des patients et produits créés est celui de l'appelant; seul un
// super_admin peut viser une autre clinique via le champ clinic_id du body.
type RegistryUseCase struct {
	retry    billing.Retryer
	clinics  repository.ClinicRepository
	patients repository.PatientRepository
	products repository.ProductRepository
}

// NewRegistryUseCase construit le cas d'usage des référentiels.
func NewRegistryUseCase(
	retry billing.Retryer,
	clinics repository.ClinicRepository,
	patients repository.PatientRepository,
	products repository.ProductRepository,
) *RegistryUseCase {
	return &RegistryUseCase{retry: retry, clinics: clinics, patients: patients, products: products}
}

func (uc *RegistryUseCase) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	if uc.retry == nil {
		return fn(ctx)
	}
	return uc.retry.Do(ctx, fn)
}

// resolveClinicID détermine la clinique cible d'une création: celle de
// l'appelant, ou celle du body pour un scope privilégié.
func resolveClinicID(scope domain.TenantScope, requested string) (string, error) {
	if scope.Filtered() {
		return scope.ClinicID, nil
	}
	if requested == "" {
		return "", domain.ErrTenantRequired
	}
	return requested, nil
}

// CreateClinic crée une clinique (super_admin uniquement, imposé en amont par
// le RBAC HTTP).
func (uc *RegistryUseCase) CreateClinic(ctx context.Context, in dto.CreateClinicRequest) (*entity.Clinic, error) {
	if in.Code == "" || in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	clinic := &entity.Clinic{
		ID:        uuid.New().String(),
		Code:      in.Code,
		Name:      in.Name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uc.withRetry(ctx, func(ctx context.Context) error {
		return uc.clinics.Create(ctx, clinic)
	})
	if err != nil {
		return nil, err
	}
	return clinic, nil
}

// GetClinic charge une clinique par id.
func (uc *RegistryUseCase) GetClinic(ctx context.Context, id string) (*entity.Clinic, error) {
	var clinic *entity.Clinic
	err := uc.withRetry(ctx, func(ctx context.Context) error {
		var err error
		clinic, err = uc.clinics.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if clinic == nil {
		return nil, domain.ErrNotFound
	}
	return clinic, nil
}

// ListClinics liste toutes les cliniques.
func (uc *RegistryUseCase) ListClinics(ctx context.Context) ([]*entity.Clinic, error) {
	var clinics []*entity.Clinic
	err := uc.withRetry(ctx, func(ctx context.Context) error {
		var err error
		clinics, err = uc.clinics.List(ctx)
		return err
	})
	return clinics, err
}

// CreatePatient crée un patient rattaché à la clinique du scope.
func (uc *RegistryUseCase) CreatePatient(ctx context.Context, scope domain.TenantScope, in dto.CreatePatientRequest) (*entity.Patient, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if in.FirstName == "" || in.LastName == "" {
		return nil, domain.ErrInvalidInput
	}
	clinicID, err := resolveClinicID(scope, in.ClinicID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	patient := &entity.Patient{
		ID:        uuid.New().String(),
		ClinicID:  clinicID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = uc.withRetry(ctx, func(ctx context.Context) error {
		return uc.patients.Create(ctx, patient)
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// GetPatient charge un patient du scope.
func (uc *RegistryUseCase) GetPatient(ctx context.Context, scope domain.TenantScope, id string) (*entity.Patient, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var patient *entity.Patient
	err := uc.withRetry(ctx, func(ctx context.Context) error {
		var err error
		patient, err = uc.patients.GetScoped(ctx, scope, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, domain.ErrNotFound
	}
	return patient, nil
}

// ListPatients liste les patients du scope.
func (uc *RegistryUseCase) ListPatients(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Patient, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var patients []*entity.Patient
	err := uc.withRetry(ctx, func(ctx context.Context) error {
		var err error
		patients, err = uc.patients.List(ctx, scope, limit, offset)
		return err
	})
	return patients, err
}

// CreateProduct crée un produit rattaché à la clinique du scope.
func (uc *RegistryUseCase) CreateProduct(ctx context.Context, scope domain.TenantScope, in dto.CreateProductRequest) (*entity.Product, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if in.Label == "" || in.Category == "" || in.UnitPrice.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if in.StockQty < 0 || in.TaxPercent.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	clinicID, err := resolveClinicID(scope, in.ClinicID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	product := &entity.Product{
		ID:         uuid.New().String(),
		ClinicID:   clinicID,
		Label:      in.Label,
		Category:   in.Category,
		UnitPrice:  in.UnitPrice,
		TaxPercent: in.TaxPercent,
		StockQty:   in.StockQty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = uc.withRetry(ctx, func(ctx context.Context) error {
		return uc.products.Create(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct charge un produit du scope.
func (uc *RegistryUseCase) GetProduct(ctx context.Context, scope domain.TenantScope, id string) (*entity.Product, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var product *entity.Product
	err := uc.withRetry(ctx, func(ctx context.Context) error {
		var err error
		product, err = uc.products.GetScoped(ctx, scope, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

// ListProducts liste les produits du scope.
func (uc *RegistryUseCase) ListProducts(ctx context.Context, scope domain.TenantScope, limit, offset int) ([]*entity.Product, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var products []*entity.Product
	err := uc.withRetry(ctx, func(ctx context.Context) error {
		var err error
		products, err = uc.products.List(ctx, scope, limit, offset)
		return err
	})
	return products, err
}
