package repository

import (
	"context"

	"github.com/tidianefall/cliniq-api/internal/domain/entity"
)

// UserRepository port de persistance des utilisateurs (authentification).
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
