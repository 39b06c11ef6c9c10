package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tidianefall/cliniq-api/internal/application/dto"
	"github.com/tidianefall/cliniq-api/internal/domain"
	"github.com/tidianefall/cliniq-api/internal/domain/entity"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
	"github.com/tidianefall/cliniq-api/pkg/jwt"
)

// JWTConfig configuration de génération des tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase cas d'usage d'authentification: inscription et login.
type AuthUseCase struct {
	userRepo   repository.UserRepository
	clinicRepo repository.ClinicRepository
	jwtCfg     JWTConfig
}

// NewAuthUseCase construit le cas d'usage d'auth.
func NewAuthUseCase(userRepo repository.UserRepository, clinicRepo repository.ClinicRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, clinicRepo: clinicRepo, jwtCfg: jwtCfg}
}

// RegisterUser crée un utilisateur: hash bcrypt du mot de passe puis
// persistance. ErrDuplicate si l'email existe déjà; un utilisateur non
// super_admin doit référencer une clinique existante.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	if in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	role := in.Role
	if role == "" {
		role = entity.RoleCaissier
	}
	if role != entity.RoleSuperAdmin {
		if in.ClinicID == "" {
			return nil, domain.ErrTenantRequired
		}
		clinic, err := uc.clinicRepo.GetByID(ctx, in.ClinicID)
		if err != nil {
			return nil, err
		}
		if clinic == nil {
			return nil, domain.ErrNotFound
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	name := in.Name
	if name == "" {
		name = in.Email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		ClinicID:     in.ClinicID,
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// Login vérifie email/mot de passe, génère le JWT et retourne token +
// utilisateur. La même erreur couvre email inconnu et mot de passe faux.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !user.Active {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.ClinicID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		ClinicID:  u.ClinicID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
