package repository

import (
	"context"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// ClinicRepository port de persistance des cliniques (tenants).
type ClinicRepository interface {
	Create(ctx context.Context, clinic *entity.Clinic) error
	GetByID(ctx context.Context, id string) (*entity.Clinic, error)
	GetByCode(ctx context.Context, code string) (*entity.Clinic, error)
	List(ctx context.Context) ([]*entity.Clinic, error)
}
